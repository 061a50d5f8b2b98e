package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

const articleURL = "https://example.com/post"

func articleMeta() *content.ArticleMetadata {
	return &content.ArticleMetadata{
		Title:       "A Post",
		Author:      "Jane Doe",
		Description: "About things",
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(&fakeClock{now: time.Unix(1000, 0)})

	require.NoError(t, s.Create(ctx, articleURL, content.KindArticle))
	require.ErrorIs(t, s.Create(ctx, articleURL, content.KindArticle), content.ErrAlreadyExists)

	rec, err := s.GetByURL(ctx, articleURL)
	require.NoError(t, err)
	require.Equal(t, content.StatusPending, rec.Status)
	require.Equal(t, content.KindArticle, rec.Kind)

	_, err = s.GetByURL(ctx, "https://example.com/other")
	require.ErrorIs(t, err, content.ErrNotFound)
}

func TestStore_MergeOrderCommutes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	metaPatch := content.MetadataPatch{Kind: content.KindArticle, Article: articleMeta()}
	bodyPatch := content.BodyPatch{Kind: content.KindArticle, Body: "# A Post\n\nbody"}

	metaFirst := New(&fakeClock{now: time.Unix(1000, 0)})
	require.NoError(t, metaFirst.Create(ctx, articleURL, content.KindArticle))
	_, err := metaFirst.MergeMetadata(ctx, articleURL, metaPatch)
	require.NoError(t, err)
	_, err = metaFirst.MergeBody(ctx, articleURL, bodyPatch)
	require.NoError(t, err)

	bodyFirst := New(&fakeClock{now: time.Unix(1000, 0)})
	require.NoError(t, bodyFirst.Create(ctx, articleURL, content.KindArticle))
	_, err = bodyFirst.MergeBody(ctx, articleURL, bodyPatch)
	require.NoError(t, err)
	_, err = bodyFirst.MergeMetadata(ctx, articleURL, metaPatch)
	require.NoError(t, err)

	a, err := metaFirst.GetByURL(ctx, articleURL)
	require.NoError(t, err)
	b, err := bodyFirst.GetByURL(ctx, articleURL)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, content.StatusCompleted, a.Status)
}

func TestStore_PartialMergesAdvanceStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(&fakeClock{now: time.Unix(1000, 0)})
	require.NoError(t, s.Create(ctx, articleURL, content.KindArticle))

	rec, err := s.MergeMetadata(ctx, articleURL, content.MetadataPatch{Kind: content.KindArticle, Article: articleMeta()})
	require.NoError(t, err)
	require.Equal(t, content.StatusExtracting, rec.Status)

	rec, err = s.MergeBody(ctx, articleURL, content.BodyPatch{Kind: content.KindArticle, Body: "# md"})
	require.NoError(t, err)
	require.Equal(t, content.StatusCompleted, rec.Status)
}

func TestStore_BodyOnlyIsConverting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(&fakeClock{now: time.Unix(1000, 0)})
	require.NoError(t, s.Create(ctx, articleURL, content.KindArticle))

	rec, err := s.MergeBody(ctx, articleURL, content.BodyPatch{Kind: content.KindArticle, Body: "# md"})
	require.NoError(t, err)
	require.Equal(t, content.StatusConverting, rec.Status)
}

func TestStore_MergeBeforeCreateUpserts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(&fakeClock{now: time.Unix(1000, 0)})

	rec, err := s.MergeMetadata(ctx, articleURL, content.MetadataPatch{Kind: content.KindArticle, Article: articleMeta()})
	require.NoError(t, err)
	require.Equal(t, content.StatusExtracting, rec.Status)
	require.Equal(t, content.KindArticle, rec.Kind)
}

func TestStore_MetadataMergePreservesExistingFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(&fakeClock{now: time.Unix(1000, 0)})
	require.NoError(t, s.Create(ctx, articleURL, content.KindArticle))

	_, err := s.MergeMetadata(ctx, articleURL, content.MetadataPatch{
		Kind:    content.KindArticle,
		Article: &content.ArticleMetadata{Title: "T", Favicon: "https://example.com/f.ico"},
	})
	require.NoError(t, err)

	rec, err := s.MergeMetadata(ctx, articleURL, content.MetadataPatch{
		Kind:    content.KindArticle,
		Article: &content.ArticleMetadata{Title: "T2", Author: "Jane"},
	})
	require.NoError(t, err)
	require.Equal(t, "T2", rec.Article.Title)
	require.Equal(t, "https://example.com/f.ico", rec.Article.Favicon)
	require.Equal(t, "Jane", rec.Article.Author)
}

func TestStore_FailedIsStickyAgainstLateMerges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(&fakeClock{now: time.Unix(1000, 0)})
	require.NoError(t, s.Create(ctx, articleURL, content.KindArticle))

	_, err := s.MarkFailed(ctx, articleURL)
	require.NoError(t, err)

	rec, err := s.MergeBody(ctx, articleURL, content.BodyPatch{Kind: content.KindArticle, Body: "# late"})
	require.NoError(t, err)
	require.Equal(t, content.StatusFailed, rec.Status)
	require.Equal(t, "# late", rec.Body)
}

func TestStore_CompletedIsStickyAgainstMarkFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(&fakeClock{now: time.Unix(1000, 0)})
	require.NoError(t, s.Create(ctx, articleURL, content.KindArticle))

	_, err := s.MergeMetadata(ctx, articleURL, content.MetadataPatch{Kind: content.KindArticle, Article: articleMeta()})
	require.NoError(t, err)
	_, err = s.MergeBody(ctx, articleURL, content.BodyPatch{Kind: content.KindArticle, Body: "# md"})
	require.NoError(t, err)

	rec, err := s.MarkFailed(ctx, articleURL)
	require.NoError(t, err)
	require.Equal(t, content.StatusCompleted, rec.Status)
}

func TestStore_VideoMergeCarriesSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(&fakeClock{now: time.Unix(1000, 0)})
	const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	require.NoError(t, s.Create(ctx, videoURL, content.KindVideo))

	rec, err := s.MergeBody(ctx, videoURL, content.BodyPatch{
		Kind:    content.KindVideo,
		Body:    "cleaned transcript",
		Summary: "a short summary",
	})
	require.NoError(t, err)
	require.Equal(t, content.StatusConverting, rec.Status)
	require.Equal(t, "a short summary", rec.Summary)

	rec, err = s.MergeMetadata(ctx, videoURL, content.MetadataPatch{
		Kind:  content.KindVideo,
		Video: &content.VideoMetadata{Title: "V", ChannelName: "C"},
	})
	require.NoError(t, err)
	require.Equal(t, content.StatusCompleted, rec.Status)
}

func TestStore_ConcurrentMergesLoseNoWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(&fakeClock{now: time.Unix(1000, 0)})
	require.NoError(t, s.Create(ctx, articleURL, content.KindArticle))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.MergeMetadata(ctx, articleURL, content.MetadataPatch{Kind: content.KindArticle, Article: articleMeta()})
		require.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := s.MergeBody(ctx, articleURL, content.BodyPatch{Kind: content.KindArticle, Body: "# md"})
		require.NoError(t, err)
	}()
	wg.Wait()

	rec, err := s.GetByURL(ctx, articleURL)
	require.NoError(t, err)
	require.Equal(t, content.StatusCompleted, rec.Status)
	require.NotNil(t, rec.Article)
	require.Equal(t, "# md", rec.Body)
}

func TestStore_ListRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(&fakeClock{now: time.Unix(1000, 0)})

	urls := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	}
	for _, u := range urls {
		require.NoError(t, s.Create(ctx, u, content.KindArticle))
	}

	recent, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "https://example.com/c", recent[0].URL)
	require.Equal(t, "https://example.com/b", recent[1].URL)
}
