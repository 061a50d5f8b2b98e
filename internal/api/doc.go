// Package api hosts the HTTP server, middleware, and REST handlers. Notable
// routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/content to submit a URL for ingestion.
//   - GET /v1/content and /v1/content/recent to read ingested records.
package api
