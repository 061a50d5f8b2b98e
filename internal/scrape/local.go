package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

// LocalConfig controls the in-process page scraper.
type LocalConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// Local fetches the page itself and reads metadata out of the document head.
// It is the fallback when no hosted scrape API is configured.
type Local struct {
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

var _ content.PageScraper = (*Local)(nil)

func NewLocal(cfg LocalConfig, logger *zap.Logger) *Local {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "readr/1.0"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

// ScrapePage fetches the document and pulls open graph tags, the favicon
// link, and any uploadDate meta out of the head.
func (l *Local) ScrapePage(ctx context.Context, pageURL string) (content.PageMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return content.PageMetadata{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return content.PageMetadata{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return content.PageMetadata{}, fmt.Errorf("fetch %s: %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return content.PageMetadata{}, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	meta := content.PageMetadata{
		Title:      metaContent(doc, "og:title"),
		OGImage:    metaContent(doc, "og:image"),
		UploadDate: itempropContent(doc, "uploadDate"),
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if href, ok := doc.Find(`link[rel="icon"], link[rel="shortcut icon"]`).First().Attr("href"); ok {
		meta.Favicon = absolutize(pageURL, href)
	}

	l.logger.Debug("page scraped locally", zap.String("url", pageURL), zap.String("title", meta.Title))
	return meta, nil
}

func metaContent(doc *goquery.Document, property string) string {
	sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, property, property)
	val, _ := doc.Find(sel).First().Attr("content")
	return strings.TrimSpace(val)
}

func itempropContent(doc *goquery.Document, prop string) string {
	val, _ := doc.Find(fmt.Sprintf(`meta[itemprop=%q]`, prop)).First().Attr("content")
	return strings.TrimSpace(val)
}

func absolutize(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
