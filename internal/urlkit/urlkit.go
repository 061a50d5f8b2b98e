// Package urlkit canonicalizes raw URLs and classifies them as article or
// video content.
package urlkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Normalization errors.
var (
	// ErrInvalidURL marks input that cannot be parsed as an absolute URL.
	ErrInvalidURL = errors.New("urlkit: invalid url")

	// ErrNotHTML marks a resolvable resource whose content type is not HTML
	// (a PDF, an image, a binary). Such URLs are not ingestible.
	ErrNotHTML = errors.New("urlkit: resource is not html")
)

// Config controls redirect resolution.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Resolver canonicalizes URLs, following redirects to the final location.
type Resolver struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewResolver builds a Resolver. A nil logger disables logging.
func NewResolver(cfg Config, logger *zap.Logger) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Normalize resolves the URL and classifies it in one step: redirects are
// followed, the resource is checked to be HTML, video URLs are rewritten to
// the standard watch form, and article URLs are reduced to their canonical
// form. The resulting CanonicalURL is the dedupe key for records.
func (r *Resolver) Normalize(ctx context.Context, rawURL string) (Classification, error) {
	resolved, err := r.Resolve(ctx, rawURL)
	if err != nil {
		return Classification{}, err
	}
	return Classify(resolved)
}

// Resolve follows redirects via a HEAD request and returns the final URL.
// The resolved resource must be HTML. If the HEAD request fails at the
// network level the original URL is returned unresolved.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	if _, err := parseAbsolute(rawURL); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("head request failed, normalizing without resolution",
			zap.String("url", rawURL), zap.Error(err))
		return rawURL, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d for %s", ErrNotHTML, resp.StatusCode, rawURL)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return "", fmt.Errorf("%w: content type %q for %s", ErrNotHTML, contentType, rawURL)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return finalURL, nil
}

// Canonicalize reduces a URL to scheme://host/path, dropping query string,
// fragment, and trailing slashes. This form is the dedupe key for records.
func Canonicalize(rawURL string) (string, error) {
	u, err := parseAbsolute(rawURL)
	if err != nil {
		return "", err
	}
	path := strings.TrimRight(u.EscapedPath(), "/")
	return fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, path), nil
}

func parseAbsolute(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	return u, nil
}
