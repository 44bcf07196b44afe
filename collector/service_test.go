package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-radar/domain"
	"content-radar/port"
)

type fakeAdapter struct {
	sourceType domain.SourceType
	name       string
	items      []domain.CollectedItem
	searchErr  error
	healthy    bool
}

func (f *fakeAdapter) SourceType() domain.SourceType { return f.sourceType }
func (f *fakeAdapter) Name() string                  { return f.name }
func (f *fakeAdapter) HealthCheck(context.Context) bool {
	return f.healthy
}

func (f *fakeAdapter) Search(ctx context.Context, req domain.SearchRequest, yield port.ItemYield) error {
	for _, item := range f.items {
		if err := yield(item); err != nil {
			return err
		}
	}
	return f.searchErr
}

type fakePublisher struct {
	published [][]byte
	failAfter int
	healthy   bool
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, message []byte) error {
	if f.failAfter >= 0 && len(f.published) >= f.failAfter {
		return errors.New("redis gone")
	}
	f.published = append(f.published, message)
	return nil
}

func (f *fakePublisher) HealthCheck(context.Context) bool { return f.healthy }

func validItem(sourceType domain.SourceType, externalID string) domain.CollectedItem {
	now := time.Now().UTC()
	return domain.CollectedItem{
		SourceType:   sourceType,
		SourceName:   "test-source",
		ExternalID:   externalID,
		URL:          "https://example.com/" + externalID,
		Title:        "Title " + externalID,
		Content:      "content",
		PublishedAt:  now.Add(-time.Hour),
		CollectedAt:  now,
		SearchPhrase: "electric vehicles",
	}
}

func testRequest() domain.SearchRequest {
	return domain.SearchRequest{
		Phrase:    "electric vehicles",
		StartDate: time.Now().UTC().Add(-7 * 24 * time.Hour),
		EndDate:   time.Now().UTC(),
		JobID:     "job-1",
	}
}

func TestCollectFansOutAcrossSources(t *testing.T) {
	news := &fakeAdapter{
		sourceType: domain.SourceTypeNewsAPI,
		name:       "NewsAPI",
		items: []domain.CollectedItem{
			validItem(domain.SourceTypeNewsAPI, "n1"),
			validItem(domain.SourceTypeNewsAPI, "n2"),
		},
	}
	rss := &fakeAdapter{
		sourceType: domain.SourceTypeRSS,
		name:       "RSS",
		items:      []domain.CollectedItem{validItem(domain.SourceTypeRSS, "r1")},
	}
	queue := &fakePublisher{failAfter: -1}

	svc := New([]port.SourceAdapter{news, rss}, queue, "raw_content")
	stats, err := svc.Collect(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, map[string]int{"NewsAPI": 2, "RSS": 1}, stats.BySource)
	assert.Empty(t, stats.Errors)
	assert.Len(t, queue.published, 3)

	// Published payloads are wire messages with the derived ID included.
	msg, err := domain.UnmarshalWire(queue.published[0])
	require.NoError(t, err)
	assert.Equal(t, news.items[0].ID(), msg.ID)
}

func TestCollectIsolatesSourceFailures(t *testing.T) {
	broken := &fakeAdapter{
		sourceType: domain.SourceTypeReddit,
		name:       "Reddit",
		items:      []domain.CollectedItem{validItem(domain.SourceTypeReddit, "p1")},
		searchErr:  errors.New("rate limited"),
	}
	working := &fakeAdapter{
		sourceType: domain.SourceTypeRSS,
		name:       "RSS",
		items:      []domain.CollectedItem{validItem(domain.SourceTypeRSS, "r1")},
	}
	queue := &fakePublisher{failAfter: -1}

	svc := New([]port.SourceAdapter{broken, working}, queue, "raw_content")
	stats, err := svc.Collect(context.Background(), testRequest())
	require.NoError(t, err)

	// Items yielded before the failure still count, and RSS runs anyway.
	assert.Equal(t, 2, stats.Total)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, "Reddit", stats.Errors[0].Source)
	assert.Contains(t, stats.Errors[0].Error, "rate limited")
}

func TestCollectAbortsOnPublishFailure(t *testing.T) {
	news := &fakeAdapter{
		sourceType: domain.SourceTypeNewsAPI,
		name:       "NewsAPI",
		items: []domain.CollectedItem{
			validItem(domain.SourceTypeNewsAPI, "n1"),
			validItem(domain.SourceTypeNewsAPI, "n2"),
		},
	}
	rss := &fakeAdapter{
		sourceType: domain.SourceTypeRSS,
		name:       "RSS",
		items:      []domain.CollectedItem{validItem(domain.SourceTypeRSS, "r1")},
	}
	queue := &fakePublisher{failAfter: 1}

	svc := New([]port.SourceAdapter{news, rss}, queue, "raw_content")
	_, err := svc.Collect(context.Background(), testRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish failed")
	// The second source never ran.
	assert.Len(t, queue.published, 1)
}

func TestCollectFiltersRequestedSources(t *testing.T) {
	news := &fakeAdapter{
		sourceType: domain.SourceTypeNewsAPI,
		name:       "NewsAPI",
		items:      []domain.CollectedItem{validItem(domain.SourceTypeNewsAPI, "n1")},
	}
	rss := &fakeAdapter{
		sourceType: domain.SourceTypeRSS,
		name:       "RSS",
		items:      []domain.CollectedItem{validItem(domain.SourceTypeRSS, "r1")},
	}
	queue := &fakePublisher{failAfter: -1}

	svc := New([]port.SourceAdapter{news, rss}, queue, "raw_content")

	req := testRequest()
	req.Sources = []string{"rss", "bogus"}

	stats, err := svc.Collect(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, map[string]int{"RSS": 1}, stats.BySource)
}

func TestCollectDropsInvalidItems(t *testing.T) {
	bad := validItem(domain.SourceTypeNewsAPI, "n1")
	bad.URL = ""

	news := &fakeAdapter{
		sourceType: domain.SourceTypeNewsAPI,
		name:       "NewsAPI",
		items:      []domain.CollectedItem{bad, validItem(domain.SourceTypeNewsAPI, "n2")},
	}
	queue := &fakePublisher{failAfter: -1}

	svc := New([]port.SourceAdapter{news}, queue, "raw_content")
	stats, err := svc.Collect(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Total)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0].Error, "invalid item")
	assert.Len(t, queue.published, 1)
}

func TestHealthAggregatesComponents(t *testing.T) {
	news := &fakeAdapter{sourceType: domain.SourceTypeNewsAPI, name: "NewsAPI", healthy: true}
	rss := &fakeAdapter{sourceType: domain.SourceTypeRSS, name: "RSS", healthy: false}
	queue := &fakePublisher{failAfter: -1, healthy: true}

	svc := New([]port.SourceAdapter{news, rss}, queue, "raw_content")
	health := svc.Health(context.Background())

	assert.True(t, health.Queue)
	assert.True(t, health.Sources["NewsAPI"])
	assert.False(t, health.Sources["RSS"])
	assert.False(t, health.Healthy())
}
