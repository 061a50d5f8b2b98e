// Package scrape resolves page-level metadata (open graph tags, favicon,
// upload date, optional summary) for a URL, either through a hosted scrape
// API or by fetching and parsing the page locally.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

// RemoteConfig controls the hosted scrape API client.
type RemoteConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Remote calls a Firecrawl-compatible scrape API.
type Remote struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ content.PageScraper = (*Remote)(nil)

func NewRemote(cfg RemoteConfig, logger *zap.Logger) *Remote {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Summary  string `json:"summary"`
		Metadata struct {
			OGTitle    string `json:"ogTitle"`
			OGImage    string `json:"ogImage"`
			Favicon    string `json:"favicon"`
			UploadDate string `json:"uploadDate"`
		} `json:"metadata"`
	} `json:"data"`
}

// ScrapePage asks the hosted API for the page's metadata and summary.
func (r *Remote) ScrapePage(ctx context.Context, url string) (content.PageMetadata, error) {
	body, err := json.Marshal(scrapeRequest{URL: url, Formats: []string{"summary"}})
	if err != nil {
		return content.PageMetadata{}, fmt.Errorf("marshal scrape payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/v2/scrape", bytes.NewReader(body))
	if err != nil {
		return content.PageMetadata{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return content.PageMetadata{}, fmt.Errorf("scrape %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return content.PageMetadata{}, fmt.Errorf("scrape %s: %s: %s", url, resp.Status, strings.TrimSpace(string(detail)))
	}

	var decoded scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return content.PageMetadata{}, fmt.Errorf("decode scrape response: %w", err)
	}
	if !decoded.Success {
		return content.PageMetadata{}, fmt.Errorf("scrape %s: %s", url, decoded.Error)
	}

	r.logger.Debug("page scraped", zap.String("url", url), zap.String("title", decoded.Data.Metadata.OGTitle))
	return content.PageMetadata{
		Title:      decoded.Data.Metadata.OGTitle,
		OGImage:    decoded.Data.Metadata.OGImage,
		Favicon:    decoded.Data.Metadata.Favicon,
		UploadDate: decoded.Data.Metadata.UploadDate,
		Summary:    decoded.Data.Summary,
	}, nil
}
