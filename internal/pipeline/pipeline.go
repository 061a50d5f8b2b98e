// Package pipeline orchestrates content ingestion: URL normalization and
// classification, record creation, concurrent retried extraction stages, and
// convergence event publishing.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
	"github.com/C41M50N/readr-convex-hackathon/internal/telemetry"
	"github.com/C41M50N/readr-convex-hackathon/internal/urlkit"
)

// DefaultTopic is the event bus topic convergence events are published to.
const DefaultTopic = "content-events"

// completionTimeout bounds the store and publish work done from a stage
// completion callback, which runs outside any request context.
const completionTimeout = 30 * time.Second

// Normalizer resolves and classifies a raw URL. *urlkit.Resolver satisfies it.
type Normalizer interface {
	Normalize(ctx context.Context, rawURL string) (urlkit.Classification, error)
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Normalizer  Normalizer
	Store       content.Store
	Retrier     content.Retrier
	Cleaner     content.DocumentCleaner
	Transcripts content.TranscriptFetcher
	Generator   content.TextGenerator
	Scraper     content.PageScraper
	Publisher   content.Publisher
	Topic       string
	Logger      *zap.Logger
}

// Orchestrator runs the ingestion pipeline for one URL at a time. Stage work
// dispatched through the retrier continues after Ingest returns.
type Orchestrator struct {
	normalizer  Normalizer
	store       content.Store
	retrier     content.Retrier
	cleaner     content.DocumentCleaner
	transcripts content.TranscriptFetcher
	generator   content.TextGenerator
	scraper     content.PageScraper
	publisher   content.Publisher
	topic       string
	logger      *zap.Logger
}

// New builds an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Orchestrator{
		normalizer:  cfg.Normalizer,
		store:       cfg.Store,
		retrier:     cfg.Retrier,
		cleaner:     cfg.Cleaner,
		transcripts: cfg.Transcripts,
		generator:   cfg.Generator,
		scraper:     cfg.Scraper,
		publisher:   cfg.Publisher,
		topic:       cfg.Topic,
		logger:      cfg.Logger,
	}
}

// Ingest normalizes rawURL and, for a URL not seen before, creates its
// record and dispatches the extraction stages. Non-HTML and unparseable URLs
// are dropped without side effects. Re-ingesting a known URL is a no-op.
func (o *Orchestrator) Ingest(ctx context.Context, rawURL string) error {
	cls, err := o.normalizer.Normalize(ctx, rawURL)
	if err != nil {
		if errors.Is(err, urlkit.ErrInvalidURL) || errors.Is(err, urlkit.ErrNotHTML) {
			o.logger.Warn("url rejected", zap.String("url", rawURL), zap.Error(err))
			telemetry.ObserveIngest("rejected")
			return nil
		}
		telemetry.ObserveIngest("rejected")
		return err
	}
	o.logger.Info("url normalized",
		zap.String("raw_url", rawURL),
		zap.String("canonical_url", cls.CanonicalURL),
		zap.String("kind", string(cls.Kind)),
	)

	_, err = o.store.GetByURL(ctx, cls.CanonicalURL)
	if err == nil {
		o.logger.Info("content already exists", zap.String("url", cls.CanonicalURL))
		telemetry.ObserveIngest("duplicate")
		return nil
	}
	if !errors.Is(err, content.ErrNotFound) {
		telemetry.ObserveIngest("error")
		return err
	}

	switch cls.Kind {
	case content.KindVideo:
		err = o.ingestVideo(ctx, cls.CanonicalURL)
	default:
		err = o.ingestArticle(ctx, cls.CanonicalURL)
	}
	if errors.Is(err, errAlreadyIngesting) {
		telemetry.ObserveIngest("duplicate")
		return nil
	}
	if err != nil {
		telemetry.ObserveIngest("error")
		return err
	}
	telemetry.ObserveIngest("accepted")
	return nil
}

// ingestArticle fetches the cleaned HTML up front: every article stage needs
// it, and a page that cannot be cleaned should not leave a record behind.
func (o *Orchestrator) ingestArticle(ctx context.Context, url string) error {
	html, err := o.cleaner.CleanDocument(ctx, url)
	if err != nil {
		return err
	}

	if err := o.createRecord(ctx, url, content.KindArticle); err != nil {
		return err
	}

	if err := o.dispatch(ctx, url, content.KindArticle, "article-metadata", o.articleMetadataTask(url, html)); err != nil {
		return err
	}
	return o.dispatch(ctx, url, content.KindArticle, "article-body", o.articleBodyTask(url, html))
}

func (o *Orchestrator) ingestVideo(ctx context.Context, url string) error {
	if err := o.createRecord(ctx, url, content.KindVideo); err != nil {
		return err
	}

	if err := o.dispatch(ctx, url, content.KindVideo, "video-metadata", o.videoMetadataTask(url)); err != nil {
		return err
	}
	return o.dispatch(ctx, url, content.KindVideo, "video-body", o.videoBodyTask(url))
}

// createRecord inserts the pending record. Losing a create race to a
// concurrent ingest of the same URL is treated like the dedupe check firing.
func (o *Orchestrator) createRecord(ctx context.Context, url string, kind content.Kind) error {
	err := o.store.Create(ctx, url, kind)
	if errors.Is(err, content.ErrAlreadyExists) {
		o.logger.Info("lost create race, skipping dispatch", zap.String("url", url))
		return errAlreadyIngesting
	}
	return err
}

var errAlreadyIngesting = errors.New("content is already being ingested")

// dispatch starts one retried stage run. The completion callback closes over
// the record's canonical URL so a failed run marks the record it was started
// for, no matter what else is in flight.
func (o *Orchestrator) dispatch(ctx context.Context, url string, kind content.Kind, name string, task content.TaskFunc) error {
	_, err := o.retrier.Run(ctx, name, task, content.RunOptions{
		OnComplete: func(runID string, result content.RunResult) {
			o.completeStage(url, kind, name, runID, result)
		},
	})
	return err
}

// completeStage reacts to a stage reaching a terminal state. Events are
// published at least once; a record that fails one stage and later finishes
// the other can be announced twice, so subscribers must be idempotent.
func (o *Orchestrator) completeStage(url string, kind content.Kind, name, runID string, result content.RunResult) {
	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	log := o.logger.With(
		zap.String("url", url),
		zap.String("stage", name),
		zap.String("run_id", runID),
	)

	switch result.State {
	case content.RunSucceeded:
		rec, err := o.store.GetByURL(ctx, url)
		if err != nil {
			log.Error("failed to load record after stage success", zap.Error(err))
			return
		}
		log.Info("stage succeeded", zap.String("status", string(rec.Status)))
		if rec.Status.Terminal() {
			o.publishEvent(ctx, log, rec)
		}

	case content.RunFailed:
		log.Error("stage failed after retries", zap.Error(result.Err))
		rec, err := o.store.MarkFailed(ctx, url)
		if err != nil {
			log.Error("failed to mark record failed", zap.Error(err))
			return
		}
		if rec.Status.Terminal() {
			o.publishEvent(ctx, log, rec)
		}

	case content.RunCanceled:
		log.Info("stage canceled")
	}
}

func (o *Orchestrator) publishEvent(ctx context.Context, log *zap.Logger, rec content.Record) {
	ev := content.Event{URL: rec.URL, Kind: rec.Kind, Status: rec.Status}
	msgID, err := o.publisher.Publish(ctx, o.topic, ev)
	if err != nil {
		log.Error("failed to publish convergence event", zap.Error(err))
		return
	}
	log.Info("convergence event published",
		zap.String("status", string(rec.Status)),
		zap.String("message_id", msgID),
	)
}
