// Package content defines the content record domain model shared across
// subsystems: the article/video tagged union, the ingestion status lattice,
// and the narrow interfaces the pipeline, stores, and stages are built on.
package content
