// Package answer assembles retrieval-augmented prompts from the vector store.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rura-ai/rura/internal/domain"
)

// Result carries the assembled prompt together with the documents that fed it.
type Result struct {
	Prompt    string
	Documents []domain.EmbeddedDocument
}

// Service embeds a query, retrieves weighted context and renders the prompt.
type Service struct {
	embedder Embedder
	searcher Searcher
	logger   *zap.Logger
}

// NewService creates the answer service.
func NewService(embedder Embedder, searcher Searcher, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, searcher: searcher, logger: logger}
}

// Answer retrieves context for the query and renders the support prompt. The
// returned documents are ordered by collection declaration order, then by
// score within each collection.
func (s *Service) Answer(ctx context.Context, query, base string, filter []domain.Collection, limit int) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, domain.ErrEmptyQuery
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("embed query: %w", err)
	}

	docs, err := s.searcher.SearchDocuments(ctx, base, filter, vector, limit)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}

	s.logger.Debug("context retrieved",
		zap.String("base_collection", base),
		zap.Int("documents", len(docs)))

	var sb strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&sb, "- %s\n", doc.Metadata.Text)
	}

	return Result{
		Prompt:    RenderAnswerPrompt(sb.String(), query),
		Documents: docs,
	}, nil
}

// Summarizer condenses text via a generation backend.
type Summarizer struct {
	gen   Generator
	model string
}

// NewSummarizer creates a summarizer bound to one model.
func NewSummarizer(gen Generator, model string) *Summarizer {
	return &Summarizer{gen: gen, model: model}
}

// Summarize returns a condensed rendition of the text.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	out, err := s.gen.Generate(ctx, s.model, RenderSummaryPrompt(text))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return out, nil
}
