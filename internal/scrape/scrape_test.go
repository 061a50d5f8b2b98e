package scrape

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRemoteScrapePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/scrape", r.URL.Path)
		require.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "https://example.com/post", req["url"])

		resp := map[string]any{
			"success": true,
			"data": map[string]any{
				"summary": "a short synopsis",
				"metadata": map[string]any{
					"ogTitle":    "Example Post",
					"ogImage":    "https://example.com/cover.png",
					"favicon":    "https://example.com/favicon.ico",
					"uploadDate": "2024-05-01",
				},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := NewRemote(RemoteConfig{Endpoint: srv.URL, APIKey: "fc-key"}, zap.NewNop())
	meta, err := client.ScrapePage(context.Background(), "https://example.com/post")
	require.NoError(t, err)
	require.Equal(t, "Example Post", meta.Title)
	require.Equal(t, "https://example.com/cover.png", meta.OGImage)
	require.Equal(t, "https://example.com/favicon.ico", meta.Favicon)
	require.Equal(t, "2024-05-01", meta.UploadDate)
	require.Equal(t, "a short synopsis", meta.Summary)
}

func TestRemoteScrapePageAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "target blocked the request",
		}))
	}))
	defer srv.Close()

	client := NewRemote(RemoteConfig{Endpoint: srv.URL, APIKey: "fc-key"}, zap.NewNop())
	_, err := client.ScrapePage(context.Background(), "https://example.com/blocked")
	require.Error(t, err)
	require.Contains(t, err.Error(), "target blocked the request")
}

func TestLocalScrapePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!doctype html><html><head>
			<title>Fallback Title</title>
			<meta property="og:title" content="OG Title">
			<meta property="og:image" content="https://cdn.example.com/img.jpg">
			<meta itemprop="uploadDate" content="2024-06-15T10:00:00Z">
			<link rel="icon" href="/favicon.ico">
		</head><body>hi</body></html>`))
	}))
	defer srv.Close()

	client := NewLocal(LocalConfig{}, zap.NewNop())
	meta, err := client.ScrapePage(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	require.Equal(t, "OG Title", meta.Title)
	require.Equal(t, "https://cdn.example.com/img.jpg", meta.OGImage)
	require.Equal(t, srv.URL+"/favicon.ico", meta.Favicon)
	require.Equal(t, "2024-06-15T10:00:00Z", meta.UploadDate)
}

func TestLocalScrapePageFallsBackToTitleTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Plain Title</title></head><body></body></html>`))
	}))
	defer srv.Close()

	client := NewLocal(LocalConfig{}, zap.NewNop())
	meta, err := client.ScrapePage(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "Plain Title", meta.Title)
	require.Empty(t, meta.OGImage)
}

func TestLocalScrapePageHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewLocal(LocalConfig{}, zap.NewNop())
	_, err := client.ScrapePage(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
}
