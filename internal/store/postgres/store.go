// Package postgres provides the Postgres-backed content store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

// Schema is the DDL for the contents table. Applied out of band by
// migrations; kept here so deployments and tests agree on the shape.
const Schema = `
CREATE TABLE IF NOT EXISTS contents (
	url        text PRIMARY KEY,
	kind       text NOT NULL,
	status     text NOT NULL,
	metadata   jsonb,
	body       text NOT NULL DEFAULT '',
	summary    text NOT NULL DEFAULT '',
	created_at timestamptz NOT NULL,
	updated_at timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS contents_created_at_idx ON contents (created_at DESC);
`

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists content records in Postgres. Merge operations run a
// SELECT ... FOR UPDATE followed by an UPDATE inside one transaction, which
// is the per-key critical section the pipeline's two concurrent writers
// depend on.
type Store struct {
	pool  pool
	clock content.Clock
}

// New creates a Store connected per cfg.
func New(ctx context.Context, cfg Config, clock content.Clock) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewWithPool(p, clock)
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing with pgxmock).
func NewWithPool(p pool, clock content.Clock) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &Store{pool: p, clock: clock}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const selectByURL = `
SELECT url, kind, status, metadata, body, summary, created_at, updated_at
FROM contents WHERE url = $1`

// GetByURL returns the record for the canonical URL.
func (s *Store) GetByURL(ctx context.Context, url string) (content.Record, error) {
	row := s.pool.QueryRow(ctx, selectByURL, url)
	return scanRecord(row)
}

// ListRecent returns up to limit records, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]content.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
SELECT url, kind, status, metadata, body, summary, created_at, updated_at
FROM contents ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer rows.Close()

	var out []content.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recent rows: %w", err)
	}
	return out, nil
}

// Create inserts a pending record. A conflicting URL maps to
// content.ErrAlreadyExists.
func (s *Store) Create(ctx context.Context, url string, kind content.Kind) error {
	now := s.clock.Now()
	tag, err := s.pool.Exec(ctx, `
INSERT INTO contents (url, kind, status, body, summary, created_at, updated_at)
VALUES ($1, $2, $3, '', '', $4, $4)
ON CONFLICT (url) DO NOTHING`, url, string(kind), string(content.StatusPending), now)
	if err != nil {
		return fmt.Errorf("insert content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return content.ErrAlreadyExists
	}
	return nil
}

// MergeMetadata shallow-merges the metadata half under row lock.
func (s *Store) MergeMetadata(ctx context.Context, url string, patch content.MetadataPatch) (content.Record, error) {
	return s.merge(ctx, url, patch.Kind, func(rec *content.Record) {
		switch patch.Kind {
		case content.KindVideo:
			rec.Video = content.MergeVideoMetadata(rec.Video, patch.Video)
		default:
			rec.Article = content.MergeArticleMetadata(rec.Article, patch.Article)
		}
	})
}

// MergeBody writes the body half under row lock.
func (s *Store) MergeBody(ctx context.Context, url string, patch content.BodyPatch) (content.Record, error) {
	return s.merge(ctx, url, patch.Kind, func(rec *content.Record) {
		if patch.Body != "" {
			rec.Body = patch.Body
		}
		if patch.Summary != "" {
			rec.Summary = patch.Summary
		}
	})
}

// MarkFailed forces failed status unless the record already converged.
func (s *Store) MarkFailed(ctx context.Context, url string) (content.Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return content.Record{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := scanRecord(tx.QueryRow(ctx, selectByURL+" FOR UPDATE", url))
	if err != nil {
		return content.Record{}, err
	}
	rec.Status = content.NextStatus(rec.Status, content.StatusFailed)
	rec.UpdatedAt = s.clock.Now()
	if _, err := tx.Exec(ctx, `UPDATE contents SET status = $2, updated_at = $3 WHERE url = $1`,
		rec.URL, string(rec.Status), rec.UpdatedAt); err != nil {
		return content.Record{}, fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return content.Record{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func (s *Store) merge(ctx context.Context, url string, kind content.Kind, apply func(*content.Record)) (content.Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return content.Record{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := scanRecord(tx.QueryRow(ctx, selectByURL+" FOR UPDATE", url))
	inserting := false
	if errors.Is(err, content.ErrNotFound) {
		// Stage landed before the create; upsert partial state.
		now := s.clock.Now()
		rec = content.Record{URL: url, Kind: kind, Status: content.StatusPending, CreatedAt: now, UpdatedAt: now}
		inserting = true
	} else if err != nil {
		return content.Record{}, err
	}

	apply(&rec)
	derived := content.DeriveStatus(rec.HasMetadata(), rec.HasBody())
	rec.Status = content.NextStatus(rec.Status, derived)
	rec.UpdatedAt = s.clock.Now()

	metaJSON, err := marshalMetadata(rec)
	if err != nil {
		return content.Record{}, err
	}

	if inserting {
		_, err = tx.Exec(ctx, `
INSERT INTO contents (url, kind, status, metadata, body, summary, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.URL, string(rec.Kind), string(rec.Status), metaJSON, rec.Body, rec.Summary, rec.CreatedAt, rec.UpdatedAt)
	} else {
		_, err = tx.Exec(ctx, `
UPDATE contents SET status = $2, metadata = $3, body = $4, summary = $5, updated_at = $6
WHERE url = $1`,
			rec.URL, string(rec.Status), metaJSON, rec.Body, rec.Summary, rec.UpdatedAt)
	}
	if err != nil {
		return content.Record{}, fmt.Errorf("write content: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return content.Record{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func marshalMetadata(rec content.Record) ([]byte, error) {
	var meta any
	switch {
	case rec.Article != nil:
		meta = rec.Article
	case rec.Video != nil:
		meta = rec.Video
	default:
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}

func scanRecord(row pgx.Row) (content.Record, error) {
	var (
		rec      content.Record
		kind     string
		status   string
		metaJSON []byte
	)
	err := row.Scan(&rec.URL, &kind, &status, &metaJSON, &rec.Body, &rec.Summary, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return content.Record{}, content.ErrNotFound
	}
	if err != nil {
		return content.Record{}, fmt.Errorf("scan content row: %w", err)
	}
	rec.Kind = content.Kind(kind)
	rec.Status = content.Status(status)
	if len(metaJSON) > 0 {
		switch rec.Kind {
		case content.KindVideo:
			meta := &content.VideoMetadata{}
			if err := json.Unmarshal(metaJSON, meta); err != nil {
				return content.Record{}, fmt.Errorf("decode video metadata: %w", err)
			}
			rec.Video = meta
		default:
			meta := &content.ArticleMetadata{}
			if err := json.Unmarshal(metaJSON, meta); err != nil {
				return content.Record{}, fmt.Errorf("decode article metadata: %w", err)
			}
			rec.Article = meta
		}
	}
	return rec, nil
}
