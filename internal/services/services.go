// Package services wraps the auxiliary HTTP services the pipeline depends
// on: a document cleaning service that returns the readable HTML of a page
// and a transcript service for YouTube videos.
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

// Config holds a service base URL and request timeout.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Cleaner fetches the cleaned, reader-mode HTML of an article page from the
// cleaning service.
type Cleaner struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ content.DocumentCleaner = (*Cleaner)(nil)

func NewCleaner(cfg Config, logger *zap.Logger) *Cleaner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// CleanDocument returns the cleaned HTML of the page at pageURL.
func (c *Cleaner) CleanDocument(ctx context.Context, pageURL string) (string, error) {
	endpoint := c.baseURL + "/clean-html?url=" + url.QueryEscape(pageURL)
	body, err := getText(ctx, c.httpClient, endpoint)
	if err != nil {
		return "", fmt.Errorf("clean document: %w", err)
	}
	c.logger.Debug("document cleaned", zap.String("url", pageURL), zap.Int("bytes", len(body)))
	return body, nil
}

// Transcripts fetches raw video transcripts from the transcript service.
type Transcripts struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ content.TranscriptFetcher = (*Transcripts)(nil)

func NewTranscripts(cfg Config, logger *zap.Logger) *Transcripts {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcripts{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// FetchTranscript returns the raw transcript for the video at videoURL.
func (t *Transcripts) FetchTranscript(ctx context.Context, videoURL string) (string, error) {
	endpoint := t.baseURL + "/yt-transcript?url=" + url.QueryEscape(videoURL)
	body, err := getText(ctx, t.httpClient, endpoint)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	t.logger.Debug("transcript fetched", zap.String("url", videoURL), zap.Int("bytes", len(body)))
	return body, nil
}

func getText(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
