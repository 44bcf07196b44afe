package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-radar/domain"
)

func testSearchRequest() domain.SearchRequest {
	return domain.SearchRequest{
		Phrase:    "electric vehicles",
		StartDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 8, 15, 23, 59, 59, 0, time.UTC),
		JobID:     "test-job",
	}
}

func newsAPIArticleJSON(i int) map[string]any {
	return map[string]any{
		"source":      map[string]any{"name": "Example Times"},
		"author":      "A. Writer",
		"title":       fmt.Sprintf("Article %d", i),
		"description": "EV breakthrough",
		"url":         fmt.Sprintf("https://example.com/articles/%d", i),
		"publishedAt": "2026-08-10T12:00:00Z",
		"content":     "Full article body",
	}
}

func TestNewsAPIPaginatesUntilTotalResults(t *testing.T) {
	// 247 results at page size 100 means exactly three pages.
	const total = 247
	pageSizes := []int{100, 100, 47}
	var requestedPages []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "electric vehicles", r.URL.Query().Get("q"))
		assert.Equal(t, "2026-08-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2026-08-15", r.URL.Query().Get("to"))
		assert.Equal(t, "publishedAt", r.URL.Query().Get("sortBy"))

		page := r.URL.Query().Get("page")
		requestedPages = append(requestedPages, page)

		idx := len(requestedPages) - 1
		require.Less(t, idx, len(pageSizes), "fetched more pages than expected")

		articles := make([]map[string]any, pageSizes[idx])
		for i := range articles {
			articles[i] = newsAPIArticleJSON(idx*100 + i)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"totalResults": total,
			"articles":     articles,
		})
	}))
	defer srv.Close()

	adapter := NewNewsAPI("test-key", 100)
	adapter.baseURL = srv.URL

	var items []domain.CollectedItem
	err := adapter.Search(context.Background(), testSearchRequest(), func(item domain.CollectedItem) error {
		items = append(items, item)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, items, total)
	assert.Equal(t, []string{"1", "2", "3"}, requestedPages)
}

func TestNewsAPIItemNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"totalResults": 1,
			"articles": []map[string]any{{
				"source":      map[string]any{"name": "Example Times"},
				"title":       "EV News",
				"description": "Only a description",
				"url":         "https://example.com/a",
				"urlToImage":  "https://example.com/a.png",
				"publishedAt": "2026-08-10T12:00:00Z",
			}},
		})
	}))
	defer srv.Close()

	adapter := NewNewsAPI("test-key", 100)
	adapter.baseURL = srv.URL

	var items []domain.CollectedItem
	err := adapter.Search(context.Background(), testSearchRequest(), func(item domain.CollectedItem) error {
		items = append(items, item)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, domain.SourceTypeNewsAPI, item.SourceType)
	assert.Equal(t, "Example Times", item.SourceName)
	// The URL doubles as the external ID since NewsAPI has no article IDs.
	assert.Equal(t, "https://example.com/a", item.ExternalID)
	// Description fills in when content is absent.
	assert.Equal(t, "Only a description", item.Content)
	assert.Equal(t, "electric vehicles", item.SearchPhrase)
	assert.NoError(t, item.Validate())
}

func TestNewsAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "error",
			"message": "apiKeyInvalid",
		})
	}))
	defer srv.Close()

	adapter := NewNewsAPI("bad-key", 100)
	adapter.baseURL = srv.URL

	err := adapter.Search(context.Background(), testSearchRequest(), func(domain.CollectedItem) error {
		t.Fatal("no items expected")
		return nil
	})
	require.ErrorIs(t, err, domain.ErrSourceResponse)
	assert.Contains(t, err.Error(), "apiKeyInvalid")
}

func TestNewsAPIHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	adapter := NewNewsAPI("test-key", 100)
	adapter.baseURL = srv.URL

	err := adapter.Search(context.Background(), testSearchRequest(), func(domain.CollectedItem) error {
		return nil
	})
	require.ErrorIs(t, err, domain.ErrSourceResponse)
}

func TestNewsAPIYieldErrorStopsSearch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"totalResults": 500,
			"articles":     []map[string]any{newsAPIArticleJSON(1), newsAPIArticleJSON(2)},
		})
	}))
	defer srv.Close()

	adapter := NewNewsAPI("test-key", 100)
	adapter.baseURL = srv.URL

	wantErr := fmt.Errorf("sink full")
	err := adapter.Search(context.Background(), testSearchRequest(), func(domain.CollectedItem) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}
