// Package memory provides an in-memory content store for development and
// testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

// Store keeps records in a map guarded by one mutex; every merge is a
// read-modify-write under the lock, which gives the per-record atomicity the
// pipeline requires.
type Store struct {
	mu      sync.RWMutex
	records map[string]content.Record
	clock   content.Clock
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// New constructs a Store. A nil clock falls back to the system clock.
func New(clock content.Clock) *Store {
	if clock == nil {
		clock = systemClock{}
	}
	return &Store{
		records: make(map[string]content.Record),
		clock:   clock,
	}
}

// GetByURL returns the record for the canonical URL.
func (s *Store) GetByURL(_ context.Context, url string) (content.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[url]
	if !ok {
		return content.Record{}, content.ErrNotFound
	}
	return rec.Clone(), nil
}

// ListRecent returns up to limit records ordered by creation time, newest
// first.
func (s *Store) ListRecent(_ context.Context, limit int) ([]content.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]content.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Create inserts a pending record for the URL.
func (s *Store) Create(_ context.Context, url string, kind content.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[url]; exists {
		return content.ErrAlreadyExists
	}
	now := s.clock.Now()
	s.records[url] = content.Record{
		URL:       url,
		Kind:      kind,
		Status:    content.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// MergeMetadata shallow-merges the metadata half into the record and
// recomputes status. A missing record is upserted with partial state.
func (s *Store) MergeMetadata(_ context.Context, url string, patch content.MetadataPatch) (content.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrStub(url, patch.Kind)
	switch patch.Kind {
	case content.KindVideo:
		rec.Video = content.MergeVideoMetadata(rec.Video, patch.Video)
	default:
		rec.Article = content.MergeArticleMetadata(rec.Article, patch.Article)
	}
	return s.put(rec), nil
}

// MergeBody writes the body half of the record and recomputes status. A
// missing record is upserted with partial state.
func (s *Store) MergeBody(_ context.Context, url string, patch content.BodyPatch) (content.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.getOrStub(url, patch.Kind)
	if patch.Body != "" {
		rec.Body = patch.Body
	}
	if patch.Summary != "" {
		rec.Summary = patch.Summary
	}
	return s.put(rec), nil
}

// MarkFailed forces the record into failed unless it already converged.
func (s *Store) MarkFailed(_ context.Context, url string) (content.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[url]
	if !ok {
		return content.Record{}, content.ErrNotFound
	}
	rec.Status = content.NextStatus(rec.Status, content.StatusFailed)
	rec.UpdatedAt = s.clock.Now()
	s.records[url] = rec
	return rec.Clone(), nil
}

// getOrStub must be called with the lock held.
func (s *Store) getOrStub(url string, kind content.Kind) content.Record {
	if rec, ok := s.records[url]; ok {
		return rec
	}
	now := s.clock.Now()
	return content.Record{
		URL:       url,
		Kind:      kind,
		Status:    content.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// put must be called with the lock held.
func (s *Store) put(rec content.Record) content.Record {
	derived := content.DeriveStatus(rec.HasMetadata(), rec.HasBody())
	rec.Status = content.NextStatus(rec.Status, derived)
	rec.UpdatedAt = s.clock.Now()
	s.records[rec.URL] = rec
	return rec.Clone()
}
