package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"content-radar/domain"
	"content-radar/port"
)

const twitterBaseURL = "https://api.twitter.com/2"

// Twitter adapts the X API v2 recent search endpoint. Pagination follows the
// next_token cursor; authors arrive in a separate includes block and are
// joined back onto tweets by author_id.
type Twitter struct {
	bearerToken string
	maxResults  int
	baseURL     string
	httpClient  *http.Client
}

// NewTwitter creates a Twitter adapter. maxResults is clamped to the API's
// 10-100 range.
func NewTwitter(bearerToken string, maxResults int) *Twitter {
	return &Twitter{
		bearerToken: bearerToken,
		maxResults:  min(max(maxResults, 10), 100),
		baseURL:     twitterBaseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SourceType returns the adapter's source type tag.
func (t *Twitter) SourceType() domain.SourceType {
	return domain.SourceTypeTwitter
}

// Name returns the adapter's display name.
func (t *Twitter) Name() string {
	return "Twitter/X"
}

type twitterResponse struct {
	Data     []twitterTweet `json:"data"`
	Includes struct {
		Users []twitterUser `json:"users"`
	} `json:"includes"`
	Meta struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type twitterTweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		RetweetCount int `json:"retweet_count"`
		ReplyCount   int `json:"reply_count"`
		LikeCount    int `json:"like_count"`
		QuoteCount   int `json:"quote_count"`
	} `json:"public_metrics"`
	Entities struct {
		Hashtags []struct {
			Tag string `json:"tag"`
		} `json:"hashtags"`
		Mentions []struct {
			Username string `json:"username"`
		} `json:"mentions"`
	} `json:"entities"`
}

type twitterUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Search pages through recent tweets matching the phrase, English only and
// excluding retweets, and yields each one.
func (t *Twitter) Search(ctx context.Context, req domain.SearchRequest, yield port.ItemYield) error {
	nextToken := ""

	for {
		data, err := t.fetchPage(ctx, req, nextToken)
		if err != nil {
			return err
		}

		if len(data.Errors) > 0 && len(data.Data) == 0 {
			return fmt.Errorf("%w: twitter error: %s", domain.ErrSourceResponse, data.Errors[0].Message)
		}
		if len(data.Data) == 0 {
			return nil
		}

		users := make(map[string]twitterUser, len(data.Includes.Users))
		for _, user := range data.Includes.Users {
			users[user.ID] = user
		}

		for _, tweet := range data.Data {
			if err := yield(t.toCollectedItem(tweet, users[tweet.AuthorID], req.Phrase)); err != nil {
				return err
			}
		}

		nextToken = data.Meta.NextToken
		if nextToken == "" {
			return nil
		}
	}
}

func (t *Twitter) fetchPage(ctx context.Context, req domain.SearchRequest, nextToken string) (*twitterResponse, error) {
	params := url.Values{}
	params.Set("query", req.Phrase+" lang:en -is:retweet")
	params.Set("max_results", strconv.Itoa(t.maxResults))
	params.Set("start_time", req.StartDate.UTC().Format("2006-01-02T15:04:05Z"))
	params.Set("end_time", req.EndDate.UTC().Format("2006-01-02T15:04:05Z"))
	params.Set("tweet.fields", "id,text,author_id,created_at,public_metrics,entities")
	params.Set("user.fields", "username,name")
	params.Set("expansions", "author_id")
	if nextToken != "" {
		params.Set("next_token", nextToken)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.baseURL+"/tweets/search/recent?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build twitter request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.bearerToken)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("twitter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: twitter token rejected", domain.ErrAuthFailed)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: twitter returned %d", domain.ErrSourceResponse, resp.StatusCode)
	}

	var data twitterResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode twitter response: %w", err)
	}
	return &data, nil
}

func (t *Twitter) toCollectedItem(tweet twitterTweet, author twitterUser, phrase string) domain.CollectedItem {
	published := time.Now().UTC()
	if tweet.CreatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
			published = parsed.UTC()
		}
	}

	username := orDefault(author.Username, "unknown")

	hashtags := make([]string, 0, len(tweet.Entities.Hashtags))
	for _, h := range tweet.Entities.Hashtags {
		hashtags = append(hashtags, h.Tag)
	}
	mentions := make([]string, 0, len(tweet.Entities.Mentions))
	for _, m := range tweet.Entities.Mentions {
		mentions = append(mentions, m.Username)
	}

	return domain.CollectedItem{
		SourceType: domain.SourceTypeTwitter,
		SourceName: "@" + username,
		ExternalID: tweet.ID,
		URL:        fmt.Sprintf("https://twitter.com/%s/status/%s", username, tweet.ID),
		// Tweets have no titles.
		Title:        "",
		Content:      tweet.Text,
		Author:       orDefault(author.Name, username),
		PublishedAt:  published,
		CollectedAt:  time.Now().UTC(),
		SearchPhrase: phrase,
		Metadata: map[string]any{
			"username":      username,
			"author_id":     tweet.AuthorID,
			"retweet_count": tweet.PublicMetrics.RetweetCount,
			"reply_count":   tweet.PublicMetrics.ReplyCount,
			"like_count":    tweet.PublicMetrics.LikeCount,
			"quote_count":   tweet.PublicMetrics.QuoteCount,
			"hashtags":      hashtags,
			"mentions":      mentions,
		},
	}
}

// HealthCheck verifies credentials with a minimal search. Rate limiting still
// counts as healthy since auth worked.
func (t *Twitter) HealthCheck(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.baseURL+"/tweets/search/recent?query=test&max_results=10", nil)
	if err != nil {
		return false
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.bearerToken)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusTooManyRequests
}
