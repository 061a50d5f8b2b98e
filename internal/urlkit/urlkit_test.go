package urlkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(Config{Timeout: 2 * time.Second}, nil)
}

func TestResolve_FollowsRedirects(t *testing.T) {
	t.Parallel()

	var final *httptest.Server
	final = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/post", http.StatusMovedPermanently)
	}))
	defer redirecting.Close()

	resolved, err := newResolver(t).Resolve(context.Background(), redirecting.URL+"/short")
	require.NoError(t, err)
	require.Equal(t, final.URL+"/post", resolved)
}

func TestResolve_RejectsNonHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := newResolver(t).Resolve(context.Background(), srv.URL+"/doc")
	require.ErrorIs(t, err, ErrNotHTML)
}

func TestResolve_RejectsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newResolver(t).Resolve(context.Background(), srv.URL+"/missing")
	require.ErrorIs(t, err, ErrNotHTML)
}

func TestResolve_NetworkFailureFallsBack(t *testing.T) {
	t.Parallel()

	// Nothing listens on this port; the raw URL should come back unresolved.
	resolved, err := newResolver(t).Resolve(context.Background(), "http://127.0.0.1:1/page/")
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:1/page/", resolved)
}

func TestResolve_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := newResolver(t).Resolve(context.Background(), "not a url")
	require.ErrorIs(t, err, ErrInvalidURL)

	_, err = newResolver(t).Resolve(context.Background(), "/relative/path")
	require.ErrorIs(t, err, ErrInvalidURL)
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		in       string
		expected string
	}{
		{"strips query", "https://example.com/post?utm_source=x", "https://example.com/post"},
		{"strips fragment", "https://example.com/post#section", "https://example.com/post"},
		{"strips trailing slashes", "https://example.com/post///", "https://example.com/post"},
		{"bare host", "https://example.com/", "https://example.com"},
		{"keeps path", "http://blog.example.com/2024/01/hello", "http://blog.example.com/2024/01/hello"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Canonicalize(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
		})
	}
}

func TestNormalize_EndToEnd(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cls, err := newResolver(t).Normalize(context.Background(), srv.URL+"/post/?ref=feed")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/post", cls.CanonicalURL)
}
