package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"content-radar/domain"
	"content-radar/port"
)

const (
	redditAuthURL = "https://www.reddit.com/api/v1/access_token"
	redditBaseURL = "https://oauth.reddit.com"
)

// Reddit adapts the Reddit search API. Authentication uses the OAuth client
// credentials flow; the token is fetched lazily on first use. The API has no
// date filtering, so results are sorted newest-first and the adapter stops a
// subreddit as soon as a post falls before the window.
type Reddit struct {
	clientID     string
	clientSecret string
	userAgent    string
	subreddits   []string

	authURL    string
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewReddit creates a Reddit adapter searching the given subreddits.
// An empty subreddit list searches all of Reddit.
func NewReddit(clientID, clientSecret, userAgent string, subreddits []string) *Reddit {
	if len(subreddits) == 0 {
		subreddits = []string{"all"}
	}
	return &Reddit{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		subreddits:   subreddits,
		authURL:      redditAuthURL,
		baseURL:      redditBaseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SourceType returns the adapter's source type tag.
func (r *Reddit) SourceType() domain.SourceType {
	return domain.SourceTypeReddit
}

// Name returns the adapter's display name.
func (r *Reddit) Name() string {
	return "Reddit"
}

// authenticate runs the client credentials flow and caches the token.
func (r *Reddit) authenticate(ctx context.Context) error {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build reddit auth request: %w", err)
	}
	req.SetBasicAuth(r.clientID, r.clientSecret)
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reddit auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: reddit auth returned %d", domain.ErrAuthFailed, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode reddit auth response: %w", err)
	}
	if body.AccessToken == "" {
		return fmt.Errorf("%w: reddit auth returned no token", domain.ErrAuthFailed)
	}

	r.token = body.AccessToken
	return nil
}

func (r *Reddit) ensureToken(ctx context.Context) error {
	if r.token != "" {
		return nil
	}
	return r.authenticate(ctx)
}

type redditListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	IsSelf      bool    `json:"is_self"`
	URL         string  `json:"url"`
}

// Search streams matching posts from every configured subreddit.
func (r *Reddit) Search(ctx context.Context, req domain.SearchRequest, yield port.ItemYield) error {
	if err := r.ensureToken(ctx); err != nil {
		return err
	}

	for _, subreddit := range r.subreddits {
		if err := r.searchSubreddit(ctx, subreddit, req, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reddit) searchSubreddit(ctx context.Context, subreddit string, req domain.SearchRequest, yield port.ItemYield) error {
	after := ""

	for {
		listing, err := r.fetchListing(ctx, subreddit, req.Phrase, after)
		if err != nil {
			return err
		}

		if len(listing.Data.Children) == 0 {
			return nil
		}

		for _, child := range listing.Data.Children {
			item := r.toCollectedItem(child.Data, req.Phrase)

			// Results come newest-first; once a post predates the window
			// everything after it does too.
			if item.PublishedAt.Before(req.StartDate) {
				return nil
			}
			if !item.PublishedAt.After(req.EndDate) {
				if err := yield(item); err != nil {
					return err
				}
			}
		}

		after = listing.Data.After
		if after == "" {
			return nil
		}
	}
}

func (r *Reddit) fetchListing(ctx context.Context, subreddit, phrase, after string) (*redditListing, error) {
	params := url.Values{}
	params.Set("q", phrase)
	params.Set("restrict_sr", boolParam(subreddit != "all"))
	params.Set("sort", "new")
	params.Set("t", "all")
	params.Set("limit", "100")
	if after != "" {
		params.Set("after", after)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/r/%s/search?%s", r.baseURL, subreddit, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("build reddit search request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.token)
	httpReq.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("reddit search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: reddit token rejected", domain.ErrAuthFailed)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: reddit returned %d", domain.ErrSourceResponse, resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode reddit listing: %w", err)
	}
	return &listing, nil
}

func (r *Reddit) toCollectedItem(post redditPost, phrase string) domain.CollectedItem {
	metadata := map[string]any{
		"score":        post.Score,
		"num_comments": post.NumComments,
		"subreddit":    post.Subreddit,
		"is_self":      post.IsSelf,
	}
	if !post.IsSelf {
		metadata["link_url"] = post.URL
	}

	return domain.CollectedItem{
		SourceType:   domain.SourceTypeReddit,
		SourceName:   "r/" + post.Subreddit,
		ExternalID:   post.ID,
		URL:          "https://reddit.com" + post.Permalink,
		Title:        post.Title,
		Content:      post.Selftext,
		Author:       post.Author,
		PublishedAt:  time.Unix(int64(post.CreatedUTC), 0).UTC(),
		CollectedAt:  time.Now().UTC(),
		SearchPhrase: phrase,
		Metadata:     metadata,
	}
}

// HealthCheck verifies the OAuth token against the identity endpoint.
func (r *Reddit) HealthCheck(ctx context.Context) bool {
	if err := r.ensureToken(ctx); err != nil {
		return false
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.baseURL+"/api/v1/me", nil)
	if err != nil {
		return false
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.token)
	httpReq.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func boolParam(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
