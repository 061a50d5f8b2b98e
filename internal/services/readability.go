package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

// ReadabilityCleaner extracts the readable HTML in process. It is the
// fallback when no cleaning service is configured.
type ReadabilityCleaner struct {
	timeout time.Duration
	logger  *zap.Logger
}

var _ content.DocumentCleaner = (*ReadabilityCleaner)(nil)

func NewReadabilityCleaner(timeout time.Duration, logger *zap.Logger) *ReadabilityCleaner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadabilityCleaner{timeout: timeout, logger: logger}
}

// CleanDocument fetches the page and returns the readable article HTML.
func (r *ReadabilityCleaner) CleanDocument(ctx context.Context, pageURL string) (string, error) {
	if _, err := url.ParseRequestURI(pageURL); err != nil {
		return "", fmt.Errorf("clean document: %w", err)
	}
	article, err := readability.FromURL(pageURL, r.timeout)
	if err != nil {
		return "", fmt.Errorf("clean document %s: %w", pageURL, err)
	}
	r.logger.Debug("document cleaned in process", zap.String("url", pageURL), zap.Int("bytes", len(article.Content)))
	return article.Content, nil
}
