package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-radar/domain"
)

func redditAuthHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client-id", user)
		require.Equal(t, "client-secret", pass)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.FormValue("grant_type"))

		json.NewEncoder(w).Encode(map[string]any{"access_token": "test-token"})
	}
}

func redditPostJSON(id string, createdUTC int64) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"id":           id,
			"subreddit":    "technology",
			"permalink":    "/r/technology/comments/" + id,
			"title":        "Post " + id,
			"selftext":     "body",
			"author":       "someone",
			"created_utc":  float64(createdUTC),
			"score":        42,
			"num_comments": 7,
			"is_self":      true,
		},
	}
}

func newRedditTestAdapter(t *testing.T, search http.HandlerFunc) *Reddit {
	t.Helper()

	authSrv := httptest.NewServer(redditAuthHandler(t))
	t.Cleanup(authSrv.Close)
	apiSrv := httptest.NewServer(search)
	t.Cleanup(apiSrv.Close)

	adapter := NewReddit("client-id", "client-secret", "ContentRadar/1.0 test", []string{"technology"})
	adapter.authURL = authSrv.URL
	adapter.baseURL = apiSrv.URL
	return adapter
}

func TestRedditStopsAtWindowStart(t *testing.T) {
	req := testSearchRequest()
	inWindow := req.StartDate.Add(24 * time.Hour).Unix()
	beforeWindow := req.StartDate.Add(-time.Hour).Unix()

	pages := 0
	adapter := newRedditTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.Equal(t, "/r/technology/search", r.URL.Path)
		assert.Equal(t, "new", r.URL.Query().Get("sort"))
		assert.Equal(t, "true", r.URL.Query().Get("restrict_sr"))

		pages++
		// Newest-first: the second post already predates the window, so the
		// adapter must stop without following the cursor.
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"after": "t3_next",
				"children": []map[string]any{
					redditPostJSON("aaa", inWindow),
					redditPostJSON("bbb", beforeWindow),
					redditPostJSON("ccc", beforeWindow),
				},
			},
		})
	})

	var items []domain.CollectedItem
	err := adapter.Search(context.Background(), req, func(item domain.CollectedItem) error {
		items = append(items, item)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "aaa", items[0].ExternalID)
	assert.Equal(t, 1, pages)
}

func TestRedditFollowsCursor(t *testing.T) {
	req := testSearchRequest()
	ts := req.StartDate.Add(24 * time.Hour).Unix()

	var cursors []string
	adapter := newRedditTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("after")
		cursors = append(cursors, cursor)

		if cursor == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"after":    "t3_page2",
					"children": []map[string]any{redditPostJSON("aaa", ts)},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"after":    "",
				"children": []map[string]any{redditPostJSON("bbb", ts)},
			},
		})
	})

	var items []domain.CollectedItem
	err := adapter.Search(context.Background(), req, func(item domain.CollectedItem) error {
		items = append(items, item)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, items, 2)
	assert.Equal(t, []string{"", "t3_page2"}, cursors)
}

func TestRedditSkipsItemsAfterWindowEnd(t *testing.T) {
	req := testSearchRequest()
	afterWindow := req.EndDate.Add(time.Hour).Unix()
	inWindow := req.EndDate.Add(-time.Hour).Unix()

	adapter := newRedditTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"after": "",
				"children": []map[string]any{
					redditPostJSON("new", afterWindow),
					redditPostJSON("old", inWindow),
				},
			},
		})
	})

	var items []domain.CollectedItem
	err := adapter.Search(context.Background(), req, func(item domain.CollectedItem) error {
		items = append(items, item)
		return nil
	})
	require.NoError(t, err)

	// Too-new posts are skipped but the scan continues toward older ones.
	require.Len(t, items, 1)
	assert.Equal(t, "old", items[0].ExternalID)
}

func TestRedditItemNormalization(t *testing.T) {
	req := testSearchRequest()
	ts := req.StartDate.Add(time.Hour).Unix()

	adapter := newRedditTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"after":    "",
				"children": []map[string]any{redditPostJSON("xyz", ts)},
			},
		})
	})

	var items []domain.CollectedItem
	err := adapter.Search(context.Background(), req, func(item domain.CollectedItem) error {
		items = append(items, item)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, domain.SourceTypeReddit, item.SourceType)
	assert.Equal(t, "r/technology", item.SourceName)
	assert.Equal(t, "https://reddit.com/r/technology/comments/xyz", item.URL)
	assert.Equal(t, 42, item.Metadata["score"])
	assert.NoError(t, item.Validate())
}

func TestRedditAuthFailure(t *testing.T) {
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer authSrv.Close()

	adapter := NewReddit("client-id", "wrong-secret", "ContentRadar/1.0 test", nil)
	adapter.authURL = authSrv.URL

	err := adapter.Search(context.Background(), testSearchRequest(), func(domain.CollectedItem) error {
		t.Fatal("no items expected")
		return nil
	})
	require.ErrorIs(t, err, domain.ErrAuthFailed)
}
