// Package source contains the per-provider collection adapters. Each adapter
// normalizes its provider's responses into domain.CollectedItem and handles
// pagination internally, streaming items to the caller one at a time.
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

const newsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPI adapts NewsAPI.org's /v2/everything endpoint. Date filtering is
// server-side via the from/to parameters; pagination is page-indexed against
// the totalResults reported by the first page.
type NewsAPI struct {
	apiKey     string
	pageSize   int
	baseURL    string
	httpClient *http.Client
}

// NewNewsAPI creates a NewsAPI.org adapter.
func NewNewsAPI(apiKey string, pageSize int) *NewsAPI {
	return &NewsAPI{
		apiKey:     apiKey,
		pageSize:   pageSize,
		baseURL:    newsAPIBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SourceType returns the adapter's source type tag.
func (n *NewsAPI) SourceType() domain.SourceType {
	return domain.SourceTypeNewsAPI
}

// Name returns the adapter's display name.
func (n *NewsAPI) Name() string {
	return "NewsAPI"
}

type newsAPIResponse struct {
	Status       string           `json:"status"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage"`
	PublishedAt time.Time `json:"publishedAt"`
	Content     string    `json:"content"`
}

// Search pages through all matching articles and yields each one. The total
// reported by the first page fixes the pagination horizon.
func (n *NewsAPI) Search(ctx context.Context, req domain.SearchRequest, yield port.ItemYield) error {
	page := 1
	totalResults := -1

	for {
		data, err := n.fetchPage(ctx, req, page)
		if err != nil {
			return err
		}

		if totalResults < 0 {
			totalResults = data.TotalResults
		}

		for _, article := range data.Articles {
			if err := yield(n.toCollectedItem(article, req.Phrase)); err != nil {
				return err
			}
		}

		if page*n.pageSize >= totalResults || len(data.Articles) == 0 {
			return nil
		}
		page++
	}
}

func (n *NewsAPI) fetchPage(ctx context.Context, req domain.SearchRequest, page int) (*newsAPIResponse, error) {
	params := url.Values{}
	params.Set("q", req.Phrase)
	params.Set("from", req.StartDate.Format("2006-01-02"))
	params.Set("to", req.EndDate.Format("2006-01-02"))
	params.Set("pageSize", strconv.Itoa(n.pageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		n.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build newsapi request: %w", err)
	}
	httpReq.Header.Set("X-Api-Key", n.apiKey)

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: newsapi returned %d", domain.ErrSourceResponse, resp.StatusCode)
	}

	var data newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode newsapi response: %w", err)
	}

	if data.Status != "ok" {
		msg := data.Message
		if msg == "" {
			msg = "unknown"
		}
		return nil, fmt.Errorf("%w: newsapi error: %s", domain.ErrSourceResponse, msg)
	}
	return &data, nil
}

func (n *NewsAPI) toCollectedItem(article newsAPIArticle, phrase string) domain.CollectedItem {
	content := article.Content
	if content == "" {
		content = article.Description
	}

	return domain.CollectedItem{
		SourceType: domain.SourceTypeNewsAPI,
		SourceName: orDefault(article.Source.Name, "unknown"),
		// NewsAPI provides no unique article IDs, so the URL stands in.
		ExternalID:   article.URL,
		URL:          article.URL,
		Title:        article.Title,
		Content:      content,
		Author:       article.Author,
		PublishedAt:  article.PublishedAt.UTC(),
		CollectedAt:  time.Now().UTC(),
		SearchPhrase: phrase,
		Metadata: map[string]any{
			"description": article.Description,
			"image_url":   article.URLToImage,
		},
	}
}

// HealthCheck probes the top-headlines endpoint with a minimal request.
func (n *NewsAPI) HealthCheck(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		n.baseURL+"/top-headlines?country=us&pageSize=1", nil)
	if err != nil {
		return false
	}
	httpReq.Header.Set("X-Api-Key", n.apiKey)

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
