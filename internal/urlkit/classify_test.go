package urlkit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

func TestClassify_VideoVariantsShareOneCanonicalURL(t *testing.T) {
	t.Parallel()

	const want = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	variants := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s",
		"https://youtube.com/watch?v=dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?si=share",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://www.youtube.com/v/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"https://www.youtube.com/live/dQw4w9WgXcQ",
	}
	for _, variant := range variants {
		cls, err := Classify(variant)
		require.NoError(t, err, variant)
		require.Equal(t, content.KindVideo, cls.Kind, variant)
		require.Equal(t, want, cls.CanonicalURL, variant)
		require.Equal(t, "dQw4w9WgXcQ", cls.VideoID, variant)
	}
}

func TestClassify_Article(t *testing.T) {
	t.Parallel()

	cls, err := Classify("https://example.com/blog/post/?ref=hn")
	require.NoError(t, err)
	require.Equal(t, content.KindArticle, cls.Kind)
	require.Equal(t, "https://example.com/blog/post", cls.CanonicalURL)
	require.Empty(t, cls.VideoID)
}

func TestClassify_YouTubeChannelPageIsArticle(t *testing.T) {
	t.Parallel()

	// No video pattern matches; the page classifies as an article.
	cls, err := Classify("https://www.youtube.com/@somechannel/videos")
	require.NoError(t, err)
	require.Equal(t, content.KindArticle, cls.Kind)
}

func TestClassify_InvalidVideoID(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"https://youtu.be/short",
		"https://www.youtube.com/watch?v=waytoolongidentifier",
	} {
		_, err := Classify(raw)
		require.ErrorIs(t, err, ErrInvalidVideoID, raw)
	}
}
