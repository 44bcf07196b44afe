package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"content-radar/domain"
)

// PostgresQuery is the read side of the relational store, used only by the
// query API. The analysis JSONB column is the source of truth for theme and
// entity detail; the side tables serve the aggregation queries.
type PostgresQuery struct {
	pool *pgxpool.Pool
}

// NewPostgresQuery wraps a pool for read-side queries.
func NewPostgresQuery(pool *pgxpool.Pool) *PostgresQuery {
	return &PostgresQuery{pool: pool}
}

// SearchSummary aggregates one search phrase.
type SearchSummary struct {
	Phrase                string         `json:"phrase"`
	TotalItems            int            `json:"total_items"`
	FirstCollected        *time.Time     `json:"first_collected"`
	LastCollected         *time.Time     `json:"last_collected"`
	FirstPublished        *time.Time     `json:"first_published"`
	LastPublished         *time.Time     `json:"last_published"`
	AvgSentimentScore     float64        `json:"avg_sentiment_score"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
}

// ItemSummary is the list-view projection of a processed item.
type ItemSummary struct {
	ID             string    `json:"id"`
	SourceType     string    `json:"source_type"`
	SourceName     string    `json:"source_name"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	PublishedAt    time.Time `json:"published_at"`
	Sentiment      string    `json:"sentiment"`
	SentimentScore float64   `json:"sentiment_score"`
	Summary        string    `json:"summary"`
	SearchPhrase   string    `json:"search_phrase,omitempty"`
	Relevance      float64   `json:"relevance,omitempty"`
}

// ItemDetail is the full single-item projection including the analysis.
type ItemDetail struct {
	ID           string          `json:"id"`
	SourceType   string          `json:"source_type"`
	SourceName   string          `json:"source_name"`
	URL          string          `json:"url"`
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	Author       string          `json:"author,omitempty"`
	PublishedAt  time.Time       `json:"published_at"`
	CollectedAt  time.Time       `json:"collected_at"`
	ProcessedAt  time.Time       `json:"processed_at"`
	SearchPhrase string          `json:"search_phrase"`
	Analysis     domain.Analysis `json:"analysis"`
}

// ThemeAggregation ranks one theme by frequency.
type ThemeAggregation struct {
	Name          string   `json:"name"`
	Count         int      `json:"count"`
	AvgConfidence float64  `json:"avg_confidence"`
	Sources       []string `json:"sources"`
}

// EntityAggregation ranks one entity by frequency.
type EntityAggregation struct {
	Name              string  `json:"name"`
	Count             int     `json:"count"`
	AvgSentimentScore float64 `json:"avg_sentiment_score"`
}

// TimelineBucket is one time bucket of the sentiment timeline.
type TimelineBucket struct {
	Date     string  `json:"date"`
	AvgScore float64 `json:"avg_score"`
	Count    int     `json:"count"`
	Positive int     `json:"positive"`
	Negative int     `json:"negative"`
	Neutral  int     `json:"neutral"`
}

// SourceBreakdown aggregates items per source.
type SourceBreakdown struct {
	SourceType        string  `json:"source_type"`
	SourceName        string  `json:"source_name"`
	Count             int     `json:"count"`
	AvgSentimentScore float64 `json:"avg_sentiment_score"`
}

// ItemFilter narrows item listings. Zero values mean "no filter".
type ItemFilter struct {
	SearchPhrase string
	SourceType   string
	Sentiment    string
	StartDate    *time.Time
	EndDate      *time.Time
}

// conditions builds a WHERE clause over processed_items, optionally with a
// table alias prefix.
func (f ItemFilter) conditions(prefix string) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, prefix, len(args)))
	}

	if f.SearchPhrase != "" {
		add("%ssearch_phrase = $%d", f.SearchPhrase)
	}
	if f.SourceType != "" {
		add("%ssource_type = $%d", f.SourceType)
	}
	if f.Sentiment != "" {
		add("%ssentiment = $%d", f.Sentiment)
	}
	if f.StartDate != nil {
		add("%spublished_at >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("%spublished_at <= $%d", *f.EndDate)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// GetSearches lists every search phrase with summary statistics.
func (q *PostgresQuery) GetSearches(ctx context.Context) ([]SearchSummary, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT
			search_phrase,
			COUNT(*),
			MIN(collected_at), MAX(collected_at),
			MIN(published_at), MAX(published_at),
			AVG(sentiment_score)
		FROM processed_items
		GROUP BY search_phrase
		ORDER BY MAX(collected_at) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query searches: %w", err)
	}
	defer rows.Close()

	var summaries []SearchSummary
	index := make(map[string]int)
	for rows.Next() {
		var s SearchSummary
		if err := rows.Scan(&s.Phrase, &s.TotalItems,
			&s.FirstCollected, &s.LastCollected,
			&s.FirstPublished, &s.LastPublished,
			&s.AvgSentimentScore); err != nil {
			return nil, fmt.Errorf("scan search summary: %w", err)
		}
		s.SentimentDistribution = make(map[string]int)
		index[s.Phrase] = len(summaries)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	distRows, err := q.pool.Query(ctx, `
		SELECT search_phrase, sentiment, COUNT(*)
		FROM processed_items
		GROUP BY search_phrase, sentiment
	`)
	if err != nil {
		return nil, fmt.Errorf("query sentiment distribution: %w", err)
	}
	defer distRows.Close()

	for distRows.Next() {
		var phrase, sentiment string
		var count int
		if err := distRows.Scan(&phrase, &sentiment, &count); err != nil {
			return nil, fmt.Errorf("scan sentiment distribution: %w", err)
		}
		if i, ok := index[phrase]; ok {
			summaries[i].SentimentDistribution[sentiment] = count
		}
	}
	return summaries, distRows.Err()
}

// GetItems returns one page of items matching the filter, newest first,
// along with the total match count.
func (q *PostgresQuery) GetItems(ctx context.Context, filter ItemFilter, page, pageSize int) ([]ItemSummary, int, error) {
	where, args := filter.conditions("")

	var total int
	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM processed_items %s`, where)
	if err := q.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	offset := (page - 1) * pageSize
	listSQL := fmt.Sprintf(`
		SELECT id, source_type, source_name, url, title,
			published_at, sentiment, sentiment_score, COALESCE(summary, '')
		FROM processed_items
		%s
		ORDER BY published_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := q.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]ItemSummary, 0, pageSize)
	for rows.Next() {
		var it ItemSummary
		if err := rows.Scan(&it.ID, &it.SourceType, &it.SourceName, &it.URL, &it.Title,
			&it.PublishedAt, &it.Sentiment, &it.SentimentScore, &it.Summary); err != nil {
			return nil, 0, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

// GetItem returns a single item with full analysis, or domain.ErrItemNotFound.
func (q *PostgresQuery) GetItem(ctx context.Context, id string) (*ItemDetail, error) {
	var item ItemDetail
	var author *string
	var analysisJSON []byte

	err := q.pool.QueryRow(ctx, `
		SELECT id, source_type, source_name, url, title, COALESCE(content, ''),
			author, published_at, collected_at, processed_at,
			search_phrase, analysis
		FROM processed_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.SourceType, &item.SourceName, &item.URL, &item.Title,
		&item.Content, &author, &item.PublishedAt, &item.CollectedAt, &item.ProcessedAt,
		&item.SearchPhrase, &analysisJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item %s: %w", id, err)
	}

	if author != nil {
		item.Author = *author
	}
	if err := json.Unmarshal(analysisJSON, &item.Analysis); err != nil {
		return nil, fmt.Errorf("unmarshal analysis for %s: %w", id, err)
	}
	return &item, nil
}

// GetThemes returns themes ranked by frequency across matching items.
func (q *PostgresQuery) GetThemes(ctx context.Context, filter ItemFilter, limit int) ([]ThemeAggregation, error) {
	where, args := filter.conditions("p.")
	sql := fmt.Sprintf(`
		SELECT t.name, COUNT(*), AVG(t.confidence),
			ARRAY_AGG(DISTINCT p.source_name)
		FROM themes t
		JOIN processed_items p ON t.item_id = p.id
		%s
		GROUP BY t.name
		ORDER BY COUNT(*) DESC
		LIMIT $%d
	`, where, len(args)+1)
	args = append(args, limit)

	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query themes: %w", err)
	}
	defer rows.Close()

	var themes []ThemeAggregation
	for rows.Next() {
		var t ThemeAggregation
		if err := rows.Scan(&t.Name, &t.Count, &t.AvgConfidence, &t.Sources); err != nil {
			return nil, fmt.Errorf("scan theme aggregation: %w", err)
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

// GetEntities returns entities ranked by frequency across matching items.
func (q *PostgresQuery) GetEntities(ctx context.Context, filter ItemFilter, limit int) ([]EntityAggregation, error) {
	where, args := filter.conditions("p.")
	sql := fmt.Sprintf(`
		SELECT e.name, COUNT(*), AVG(p.sentiment_score)
		FROM entities e
		JOIN processed_items p ON e.item_id = p.id
		%s
		GROUP BY e.name
		ORDER BY COUNT(*) DESC
		LIMIT $%d
	`, where, len(args)+1)
	args = append(args, limit)

	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var entities []EntityAggregation
	for rows.Next() {
		var e EntityAggregation
		if err := rows.Scan(&e.Name, &e.Count, &e.AvgSentimentScore); err != nil {
			return nil, fmt.Errorf("scan entity aggregation: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// timelineGranularities maps API granularities to DATE_TRUNC fields.
var timelineGranularities = map[string]string{
	"hour":  "hour",
	"day":   "day",
	"week":  "week",
	"month": "month",
}

// ValidGranularity reports whether g is an accepted timeline granularity.
func ValidGranularity(g string) bool {
	_, ok := timelineGranularities[g]
	return ok
}

// GetSentimentTimeline buckets sentiment by publication time.
func (q *PostgresQuery) GetSentimentTimeline(ctx context.Context, filter ItemFilter, granularity string) ([]TimelineBucket, error) {
	trunc, ok := timelineGranularities[granularity]
	if !ok {
		return nil, fmt.Errorf("invalid granularity: %q", granularity)
	}

	where, args := filter.conditions("")
	sql := fmt.Sprintf(`
		SELECT
			DATE_TRUNC('%s', published_at) AS bucket,
			AVG(sentiment_score),
			COUNT(*),
			SUM(CASE WHEN sentiment IN ('positive', 'very_positive') THEN 1 ELSE 0 END),
			SUM(CASE WHEN sentiment IN ('negative', 'very_negative') THEN 1 ELSE 0 END),
			SUM(CASE WHEN sentiment = 'neutral' THEN 1 ELSE 0 END)
		FROM processed_items
		%s
		GROUP BY bucket
		ORDER BY bucket
	`, trunc, where)

	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query sentiment timeline: %w", err)
	}
	defer rows.Close()

	var buckets []TimelineBucket
	for rows.Next() {
		var b TimelineBucket
		var bucket time.Time
		if err := rows.Scan(&bucket, &b.AvgScore, &b.Count, &b.Positive, &b.Negative, &b.Neutral); err != nil {
			return nil, fmt.Errorf("scan timeline bucket: %w", err)
		}
		b.Date = bucket.UTC().Format(time.RFC3339)
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// GetSourceBreakdown aggregates item counts and average sentiment per source.
func (q *PostgresQuery) GetSourceBreakdown(ctx context.Context, searchPhrase string) ([]SourceBreakdown, error) {
	where, args := ItemFilter{SearchPhrase: searchPhrase}.conditions("")
	sql := fmt.Sprintf(`
		SELECT source_type, source_name, COUNT(*), AVG(sentiment_score)
		FROM processed_items
		%s
		GROUP BY source_type, source_name
		ORDER BY COUNT(*) DESC
	`, where)

	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query source breakdown: %w", err)
	}
	defer rows.Close()

	var breakdown []SourceBreakdown
	for rows.Next() {
		var s SourceBreakdown
		if err := rows.Scan(&s.SourceType, &s.SourceName, &s.Count, &s.AvgSentimentScore); err != nil {
			return nil, fmt.Errorf("scan source breakdown: %w", err)
		}
		breakdown = append(breakdown, s)
	}
	return breakdown, rows.Err()
}

// searchVector is the document expression for full-text search over
// title, content and summary.
const searchVector = `to_tsvector('english',
	COALESCE(title, '') || ' ' || COALESCE(content, '') || ' ' || COALESCE(summary, ''))`

// FullTextSearch runs a ranked full-text search across titles, content and
// summaries. Multi-word queries require all terms.
func (q *PostgresQuery) FullTextSearch(ctx context.Context, query, searchPhrase string, page, pageSize int) ([]ItemSummary, int, error) {
	tsquery := strings.Join(strings.Fields(strings.TrimSpace(query)), " & ")

	conds := []string{fmt.Sprintf("(%s @@ to_tsquery('english', $1))", searchVector)}
	args := []any{tsquery}
	if searchPhrase != "" {
		args = append(args, searchPhrase)
		conds = append(conds, fmt.Sprintf("search_phrase = $%d", len(args)))
	}
	where := "WHERE " + strings.Join(conds, " AND ")

	var total int
	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM processed_items %s`, where)
	if err := q.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search results: %w", err)
	}

	offset := (page - 1) * pageSize
	listSQL := fmt.Sprintf(`
		SELECT id, source_type, source_name, url, title,
			published_at, sentiment, sentiment_score, COALESCE(summary, ''),
			search_phrase,
			ts_rank(%s, to_tsquery('english', $1)) AS relevance
		FROM processed_items
		%s
		ORDER BY relevance DESC, published_at DESC
		LIMIT $%d OFFSET $%d
	`, searchVector, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := q.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("full-text search: %w", err)
	}
	defer rows.Close()

	items := make([]ItemSummary, 0, pageSize)
	for rows.Next() {
		var it ItemSummary
		if err := rows.Scan(&it.ID, &it.SourceType, &it.SourceName, &it.URL, &it.Title,
			&it.PublishedAt, &it.Sentiment, &it.SentimentScore, &it.Summary,
			&it.SearchPhrase, &it.Relevance); err != nil {
			return nil, 0, fmt.Errorf("scan search result: %w", err)
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

// HealthCheck runs a trivial round-trip.
func (q *PostgresQuery) HealthCheck(ctx context.Context) bool {
	var one int
	return q.pool.QueryRow(ctx, `SELECT 1`).Scan(&one) == nil
}
