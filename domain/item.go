// Package domain contains core domain types for content-radar.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SourceType identifies the kind of external source an item came from.
type SourceType string

// Source types supported by the collector.
const (
	// SourceTypeNewsAPI is for items collected from NewsAPI.org.
	SourceTypeNewsAPI SourceType = "newsapi"
	// SourceTypeReddit is for items collected from the Reddit API.
	SourceTypeReddit SourceType = "reddit"
	// SourceTypeRSS is for items collected from RSS/Atom feeds.
	SourceTypeRSS SourceType = "rss"
	// SourceTypeTwitter is for items collected from the X/Twitter API.
	SourceTypeTwitter SourceType = "twitter"
)

// validSourceTypes contains all valid source types.
var validSourceTypes = map[SourceType]bool{
	SourceTypeNewsAPI: true,
	SourceTypeReddit:  true,
	SourceTypeRSS:     true,
	SourceTypeTwitter: true,
}

// IsValid returns true if the source type is a known valid type.
func (s SourceType) IsValid() bool {
	return validSourceTypes[s]
}

// String returns the string representation of the source type.
func (s SourceType) String() string {
	return string(s)
}

// CollectedItem is a normalized content item from any source. It is the wire
// format on the queue between the collector and the processor.
type CollectedItem struct {
	// SourceType identifies which adapter produced this item.
	SourceType SourceType `json:"source_type"`
	// SourceName is the human-readable origin, e.g. "r/technology" or a feed title.
	SourceName string `json:"source_name"`
	// ExternalID is the original ID from the source (the URL when the source
	// provides no unique IDs).
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	// Content is the body text; sources may truncate it.
	Content string `json:"content"`
	Author  string `json:"author,omitempty"`
	// PublishedAt is when the source says the item was published (UTC).
	PublishedAt time.Time `json:"published_at"`
	// CollectedAt is when the collector saw the item (UTC).
	CollectedAt  time.Time `json:"collected_at"`
	SearchPhrase string    `json:"search_phrase"`
	// Metadata holds source-specific extras (engagement counts, tags, image URL).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ID derives the deterministic identifier for this item: the first 16 hex
// characters of SHA-256 over "{source_type}:{external_id}". It is stable
// across restarts and is the primary key through the whole pipeline.
func (i *CollectedItem) ID() string {
	key := fmt.Sprintf("%s:%s", i.SourceType, i.ExternalID)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// Validate checks the item invariants before it goes on the queue.
func (i *CollectedItem) Validate() error {
	if !i.SourceType.IsValid() {
		return fmt.Errorf("invalid source_type: %q", i.SourceType)
	}
	if i.URL == "" {
		return errors.New("url is required")
	}
	if i.Title == "" && i.SourceType != SourceTypeTwitter {
		return errors.New("title is required for non-twitter items")
	}
	if i.PublishedAt.After(i.CollectedAt) {
		return errors.New("published_at must not be after collected_at")
	}
	return nil
}

// QueueMessage is a CollectedItem with its derived ID precomputed, so
// consumers can run the dedup probe without rehashing.
type QueueMessage struct {
	ID string `json:"id"`
	CollectedItem
}

// MarshalWire serializes the item to the UTF-8 JSON queue wire format,
// timestamps as ISO-8601 and the derived ID included.
func (i *CollectedItem) MarshalWire() ([]byte, error) {
	return json.Marshal(QueueMessage{ID: i.ID(), CollectedItem: *i})
}

// UnmarshalWire parses a queue message back into a QueueMessage. Messages
// published before the ID field was added have it recomputed.
func UnmarshalWire(data []byte) (*QueueMessage, error) {
	var msg QueueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal queue message: %w", err)
	}
	if msg.ID == "" {
		msg.ID = msg.CollectedItem.ID()
	}
	return &msg, nil
}

// SearchRequest holds the parameters for one collection run.
type SearchRequest struct {
	Phrase    string    `json:"phrase"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	// JobID correlates one run across log lines and stats.
	JobID string `json:"job_id"`
	// Sources restricts the run to a subset of source types. Nil means all
	// enabled sources.
	Sources []string `json:"sources,omitempty"`
}

// InWindow reports whether a publication time falls inside the request's
// [StartDate, EndDate] window, both ends inclusive.
func (r *SearchRequest) InWindow(publishedAt time.Time) bool {
	return !publishedAt.Before(r.StartDate) && !publishedAt.After(r.EndDate)
}
