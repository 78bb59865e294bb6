package ingest

import (
	"context"

	"github.com/rura-ai/rura/internal/domain"
)

// Crawler discovers and fetches site pages.
type Crawler interface {
	Sitemap(ctx context.Context, baseURL string) ([]domain.Document, error)
}

// Encoder turns a document into embedded fragments, reporting progress for
// tracked jobs.
type Encoder interface {
	Encode(ctx context.Context, doc domain.Document, jobID string) ([]domain.EmbeddedDocument, error)
}

// Store persists embedded documents into logical collections.
type Store interface {
	EnsureCollections(ctx context.Context, base string, cols []domain.Collection, dim int) error
	AddDocuments(ctx context.Context, base string, filter []domain.Collection, docs []domain.EmbeddedDocument) error
}

// Summarizer condenses a document's text for the summary collection.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SummarizerFactory builds a summarizer against a per-job generation backend.
type SummarizerFactory func(host string, port int, model string) Summarizer

// ProgressStore registers jobs and records terminal failures; per-document
// increments happen inside the encoder.
type ProgressStore interface {
	Create(jobID string, total int)
	Fail(jobID string)
}
