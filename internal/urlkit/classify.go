package urlkit

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

// ErrInvalidVideoID marks a URL that structurally matched a video pattern but
// whose captured identifier failed validation. This is fatal, not retryable.
var ErrInvalidVideoID = errors.New("urlkit: invalid video id")

// Classification is the outcome of classifying a canonical URL. For videos
// CanonicalURL is rewritten to the platform's standard watch URL so every
// surface form of the same video dedupes to one record.
type Classification struct {
	Kind         content.Kind
	CanonicalURL string
	VideoID      string
}

// Ordered YouTube URL shapes. First match wins; the first capture group is
// the video identifier.
var videoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(?:www\.|m\.)?youtube\.com/watch\?.*?v=([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`^https?://youtu\.be/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`^https?://(?:www\.|m\.)?youtube\.com/embed/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`^https?://(?:www\.|m\.)?youtube\.com/v/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`^https?://(?:www\.|m\.)?youtube\.com/shorts/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`^https?://(?:www\.|m\.)?youtube\.com/live/([A-Za-z0-9_-]+)`),
}

var validVideoID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

const watchURLTemplate = "https://www.youtube.com/watch?v=%s"

// Classify tests the resolved URL against the video patterns, falling back
// to article. Video matches are rewritten to the watch template, discarding
// all other path and query variants; article URLs are canonicalized by
// stripping query, fragment, and trailing slashes.
func Classify(resolvedURL string) (Classification, error) {
	for _, pattern := range videoPatterns {
		m := pattern.FindStringSubmatch(resolvedURL)
		if m == nil {
			continue
		}
		id := m[1]
		if !validVideoID.MatchString(id) {
			return Classification{}, fmt.Errorf("%w: %q in %s", ErrInvalidVideoID, id, resolvedURL)
		}
		return Classification{
			Kind:         content.KindVideo,
			CanonicalURL: fmt.Sprintf(watchURLTemplate, id),
			VideoID:      id,
		}, nil
	}
	canonical, err := Canonicalize(resolvedURL)
	if err != nil {
		return Classification{}, err
	}
	return Classification{Kind: content.KindArticle, CanonicalURL: canonical}, nil
}
