package services

import (
	"context"

	"alfredoptarigan/resume-screener/internal/models"
)

// Ingestor turns an uploaded or folder file into plain text.
type Ingestor interface {
	Supports(ext string) bool
	Ingest(ctx context.Context, doc models.InputDocument) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Reranker returns the raw cross-encoder logit for a (query, text) pair.
type Reranker interface {
	Rerank(ctx context.Context, query, text string) (float64, error)
}

// EntityRecognizer returns the first PERSON entity in text, or "" when there is none.
type EntityRecognizer interface {
	RecognizePerson(ctx context.Context, text string) (string, error)
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type VectorPoint struct {
	ID      uint64
	Vector  []float32
	Chunk   string
	File    string
	Ordinal int
}

type VectorHit struct {
	Chunk string
	Score float32
}

// VectorIndex stores named, independent collections of chunk embeddings.
type VectorIndex interface {
	CreateOrReplace(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, name string, points []VectorPoint) error
	Search(ctx context.Context, name string, vector []float32, limit int) ([]VectorHit, error)
	Count(ctx context.Context, name string) (int, error)
	Drop(ctx context.Context, name string) error
}

// AuditLog receives every generative request and response. Implementations never fail the caller.
type AuditLog interface {
	Record(event, document string, payload any)
}
