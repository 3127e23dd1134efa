package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Plain name", input: "eldenring", expected: "eldenring"},
		{name: "Prefixed name", input: "r/Eldenring", expected: "Eldenring"},
		{name: "Upper-case prefix", input: "R/Eldenring", expected: "Eldenring"},
		{name: "Slashes and spaces", input: "  /r/Helldivers/ ", expected: "Helldivers"},
		{name: "Full URL", input: "https://www.reddit.com/r/Minecraft/comments/abc", expected: "Minecraft"},
		{name: "Empty", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeIdentifier(tt.input))
		})
	}
}

func TestIdentifierKey_CollapsesPrefixAndCase(t *testing.T) {
	assert.Equal(t, IdentifierKey("r/Eldenring"), IdentifierKey("eldenring"))
}

func TestDedupeIdentifiers(t *testing.T) {
	result := DedupeIdentifiers([]string{"r/Eldenring", "eldenring", "", "Minecraft", "r/minecraft", "Terraria"})
	assert.Equal(t, []string{"Eldenring", "Minecraft", "Terraria"}, result)
}

func TestPermalink(t *testing.T) {
	assert.Equal(t, "https://www.reddit.com/comments/abc123/", Permalink("abc123"))
}

func TestWindow_Contains(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	window := Window{After: 48 * time.Hour, Before: 0}

	assert.True(t, window.Contains(now.Add(-time.Hour), now))
	assert.False(t, window.Contains(now.Add(-72*time.Hour), now))
	assert.Equal(t, "8d..48h", DefaultWindows[1].String())
}

func TestArcticShiftSource_ListPosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/posts/search", r.URL.Path)
		assert.Equal(t, "Eldenring", r.URL.Query().Get("subreddit"))
		assert.Equal(t, "48h", r.URL.Query().Get("after"))
		assert.Equal(t, "0h", r.URL.Query().Get("before"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "p1", "title": "Patch notes", "selftext": "body", "author": "a", "subreddit": "Eldenring", "created_utc": 1715340000, "score": 42, "num_comments": 7},
				{"title": "missing id"},
			},
		})
	}))
	defer server.Close()

	source := NewArcticShiftSource(server.URL, "")
	posts, err := source.ListPosts(context.Background(), "r/Eldenring", DefaultWindows[0])

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, 42, posts[0].Score)
	assert.Equal(t, 7, posts[0].CommentCount)
	assert.Equal(t, "https://www.reddit.com/comments/p1/", posts[0].Permalink)
	assert.Equal(t, int64(1715340000), posts[0].CreatedAt.Unix())
}

func TestArcticShiftSource_ListPosts_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source := NewArcticShiftSource(server.URL, "")
	_, err := source.ListPosts(context.Background(), "private_sub", DefaultWindows[0])

	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestArcticShiftSource_ListPosts_ErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	source := NewArcticShiftSource(server.URL, "")
	_, err := source.ListPosts(context.Background(), "Eldenring", DefaultWindows[0])

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSourceUnavailable))
	assert.Contains(t, err.Error(), "HTTP 429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestArcticShiftSource_ListComments_TopLevelOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "t3_p1", r.URL.Query().Get("link_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"c1","body":"Great boss design","author":"x","parent_id":"t3_p1","score":10,"created_utc":1715340000},
			{"id":"c2","body":"reply","author":"y","parent_id":"t1_c1","score":50,"created_utc":1715340000},
			{"id":"c3","body":"[deleted]","author":"z","parent_id":"t3_p1","score":5,"created_utc":1715340000}
		]}`))
	}))
	defer server.Close()

	source := NewArcticShiftSource(server.URL, "")
	comments, err := source.ListComments(context.Background(), "p1")

	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "c1", comments[0].ID)
	assert.Equal(t, "p1", comments[0].ParentPostID)
}

func TestArcticShiftSource_SearchCommunities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eldenring", r.URL.Query().Get("subreddit_prefix"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"subreddit":"Eldenring","title":"Elden Ring","public_description":"The official community","subscribers":4000000},
			{"display_name":"EldenRingBuilds","subscribers":50000},
			{"subscribers":10}
		]}`))
	}))
	defer server.Close()

	source := NewArcticShiftSource(server.URL, "")
	communities, err := source.SearchCommunities(context.Background(), "Elden-Ring", 25)

	require.NoError(t, err)
	require.Len(t, communities, 2)
	assert.Equal(t, "Eldenring", communities[0].Name)
	assert.Equal(t, "The official community", communities[0].Description)
	assert.Equal(t, "EldenRingBuilds", communities[1].Name)
}

func TestArcticShiftSource_SearchCommunities_ShortPrefix(t *testing.T) {
	source := NewArcticShiftSource("http://127.0.0.1:1", "")
	communities, err := source.SearchCommunities(context.Background(), "a", 25)

	assert.NoError(t, err)
	assert.Empty(t, communities)
}

func TestRedditSource_GetName(t *testing.T) {
	source := NewRedditSource("client_id", "client_secret", "")
	assert.Equal(t, "reddit", source.GetName())
}

func TestRedditSource_IsEnabled(t *testing.T) {
	tests := []struct {
		name         string
		clientID     string
		clientSecret string
		expected     bool
	}{
		{name: "Both credentials provided", clientID: "client_id", clientSecret: "client_secret", expected: true},
		{name: "Missing client ID", clientID: "", clientSecret: "client_secret", expected: false},
		{name: "Missing client secret", clientID: "client_id", clientSecret: "", expected: false},
		{name: "Both missing", clientID: "", clientSecret: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewRedditSource(tt.clientID, tt.clientSecret, "")
			assert.Equal(t, tt.expected, source.IsEnabled())
		})
	}
}

func TestRedditSource_ListPosts(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/r/Eldenring/new", r.URL.Path)
		recent := now.Add(-time.Hour).Unix()
		old := now.Add(-10 * 24 * time.Hour).Unix()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"children": []map[string]interface{}{
					{"kind": "t3", "data": map[string]interface{}{"id": "new1", "title": "Fresh", "created_utc": recent, "score": 3}},
					{"kind": "t3", "data": map[string]interface{}{"id": "old1", "title": "Stale", "created_utc": old, "score": 900}},
				},
			},
		})
	}))
	defer apiServer.Close()

	source := NewRedditSource("id", "secret", "", WithRedditEndpoints(apiServer.URL, tokenServer.URL))
	source.now = func() time.Time { return now }

	posts, err := source.ListPosts(context.Background(), "Eldenring", DefaultWindows[0])

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "new1", posts[0].ID)
}

func TestRedditSource_Disabled(t *testing.T) {
	source := NewRedditSource("", "", "")
	_, err := source.ListPosts(context.Background(), "Eldenring", DefaultWindows[0])
	assert.Error(t, err)
}
