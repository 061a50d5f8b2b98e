// Package main hosts the content ingestion service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and content
//     endpoints. POST /v1/content hands the raw URL to the pipeline and
//     returns 202 once the extraction stages are dispatched.
//   - URL handling: internal/urlkit resolves redirects, rejects non-HTML
//     targets, classifies article vs video, and produces the canonical URL
//     every later step keys on.
//   - Pipeline: internal/pipeline creates the pending record and dispatches
//     the metadata and body stages through the retrier. The two stages run
//     concurrently and converge on one record via idempotent merges; the
//     first stage to complete the record publishes a convergence event.
//   - Retrier: internal/retrier runs stage tasks on a bounded worker pool
//     with exponential backoff and fires a completion callback exactly once
//     per run. A run that exhausts its retries marks its record failed.
//   - Persistence & fanout: records live in Postgres (pgx) or in memory;
//     convergence events go to Google Cloud Pub/Sub or an in-memory
//     publisher when no project is configured.
//   - Configuration & plumbing: Viper populates config from env/files with
//     the READR prefix; zap provides structured logging; Prometheus metrics
//     are exported via the telemetry middleware and /metrics handler.
//
// Run locally: go run ./cmd/readr -config config.yaml (or rely solely on
// READR_* env overrides). The process reacts to SIGTERM for graceful drain.
package main
