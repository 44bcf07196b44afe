package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"content-radar/domain"
	"content-radar/logger"
	"content-radar/port"
)

// RSS adapts a configured set of RSS/Atom feeds. Feeds have no search
// endpoint, so each feed is fetched whole and entries are matched by a
// case-insensitive substring check against title and description. A feed
// that fails to fetch or parse is logged and skipped; the other feeds still
// run.
type RSS struct {
	feeds      map[string]string
	parser     *gofeed.Parser
	httpClient *http.Client
}

// NewRSS creates an RSS adapter over a name-to-URL feed map.
func NewRSS(feeds map[string]string) *RSS {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	parser := gofeed.NewParser()
	parser.Client = httpClient

	return &RSS{
		feeds:      feeds,
		parser:     parser,
		httpClient: httpClient,
	}
}

// SourceType returns the adapter's source type tag.
func (r *RSS) SourceType() domain.SourceType {
	return domain.SourceTypeRSS
}

// Name returns the adapter's display name.
func (r *RSS) Name() string {
	return "RSS"
}

// Search fetches every configured feed and yields in-window entries that
// mention the phrase.
func (r *RSS) Search(ctx context.Context, req domain.SearchRequest, yield port.ItemYield) error {
	phraseLower := strings.ToLower(req.Phrase)

	for feedName, feedURL := range r.feeds {
		if err := r.searchFeed(ctx, feedName, feedURL, phraseLower, req, yield); err != nil {
			// A broken feed must not sink the others.
			logger.Logger.Warn("feed fetch failed",
				"feed", feedName,
				"url", feedURL,
				"error", err,
			)
		}
	}
	return nil
}

func (r *RSS) searchFeed(ctx context.Context, feedName, feedURL, phraseLower string, req domain.SearchRequest, yield port.ItemYield) error {
	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return err
	}

	for _, entry := range feed.Items {
		if !strings.Contains(strings.ToLower(entry.Title), phraseLower) &&
			!strings.Contains(strings.ToLower(entry.Description), phraseLower) {
			continue
		}

		item := r.toCollectedItem(entry, feedName, req.Phrase)
		if !req.InWindow(item.PublishedAt) {
			continue
		}
		if err := yield(item); err != nil {
			return err
		}
	}
	return nil
}

func (r *RSS) toCollectedItem(entry *gofeed.Item, feedName, phrase string) domain.CollectedItem {
	published := time.Now().UTC()
	if entry.PublishedParsed != nil {
		published = entry.PublishedParsed.UTC()
	} else if entry.UpdatedParsed != nil {
		published = entry.UpdatedParsed.UTC()
	}

	externalID := entry.GUID
	if externalID == "" {
		externalID = entry.Link
	}

	author := ""
	if len(entry.Authors) > 0 {
		author = entry.Authors[0].Name
	}

	tags := entry.Categories
	if tags == nil {
		tags = []string{}
	}

	return domain.CollectedItem{
		SourceType:   domain.SourceTypeRSS,
		SourceName:   feedName,
		ExternalID:   externalID,
		URL:          entry.Link,
		Title:        entry.Title,
		Content:      entry.Description,
		Author:       author,
		PublishedAt:  published,
		CollectedAt:  time.Now().UTC(),
		SearchPhrase: phrase,
		Metadata: map[string]any{
			"tags": tags,
		},
	}
}

// HealthCheck probes the first configured feed with a HEAD request.
func (r *RSS) HealthCheck(ctx context.Context) bool {
	var feedURL string
	for _, u := range r.feeds {
		feedURL = u
		break
	}
	if feedURL == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, feedURL, nil)
	if err != nil {
		return false
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
