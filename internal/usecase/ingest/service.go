// Package ingest orchestrates the crawl, summarize, encode and store pipeline.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rura-ai/rura/internal/domain"
	"github.com/rura-ai/rura/internal/metrics"
)

// Params configures one ingestion run. Zero-valued fields fall back to the
// service defaults.
type Params struct {
	URL            string
	BaseCollection string
	Filter         []domain.Collection
	OllamaHost     string
	OllamaPort     int
	OllamaModel    string
}

// Defaults holds the service-level fallbacks for Params.
type Defaults struct {
	BaseCollection string
	Filter         []domain.Collection
	OllamaHost     string
	OllamaPort     int
	OllamaModel    string
	Dimensions     int
}

// Service runs ingestion jobs. Started jobs run on jobCtx, which outlives the
// originating request and is cancelled on shutdown.
type Service struct {
	crawler    Crawler
	encoder    Encoder
	store      Store
	progress   ProgressStore
	summarizer SummarizerFactory
	defaults   Defaults
	jobCtx     context.Context
	logger     *zap.Logger
}

// NewService creates the ingest service.
func NewService(
	jobCtx context.Context,
	crawler Crawler,
	encoder Encoder,
	store Store,
	progress ProgressStore,
	summarizer SummarizerFactory,
	defaults Defaults,
	logger *zap.Logger,
) *Service {
	return &Service{
		crawler:    crawler,
		encoder:    encoder,
		store:      store,
		progress:   progress,
		summarizer: summarizer,
		defaults:   defaults,
		jobCtx:     jobCtx,
		logger:     logger,
	}
}

// Start crawls the sitemap synchronously, registers a job and processes the
// fetched documents in the background. The returned id can be polled for
// progress immediately.
func (s *Service) Start(ctx context.Context, p Params) (string, error) {
	if p.URL == "" {
		return "", domain.ErrEmptyURL
	}
	s.applyDefaults(&p)

	docs, err := s.crawler.Sitemap(ctx, p.URL)
	if err != nil {
		metrics.IngestJobsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("crawl %s: %w", p.URL, err)
	}

	jobID := uuid.NewString()
	s.progress.Create(jobID, len(docs))

	s.logger.Info("ingestion job started",
		zap.String("job_id", jobID),
		zap.String("url", p.URL),
		zap.Int("documents", len(docs)))

	go s.runJob(s.jobCtx, jobID, docs, p)

	return jobID, nil
}

// IngestDocuments processes already-fetched documents synchronously with no
// progress tracking. Used by the CLI paths.
func (s *Service) IngestDocuments(ctx context.Context, docs []domain.Document, p Params) error {
	s.applyDefaults(&p)
	return s.process(ctx, "", docs, p)
}

func (s *Service) applyDefaults(p *Params) {
	if p.BaseCollection == "" {
		p.BaseCollection = s.defaults.BaseCollection
	}
	if len(p.Filter) == 0 {
		p.Filter = s.defaults.Filter
	}
	if p.OllamaHost == "" {
		p.OllamaHost = s.defaults.OllamaHost
	}
	if p.OllamaPort <= 0 {
		p.OllamaPort = s.defaults.OllamaPort
	}
	if p.OllamaModel == "" {
		p.OllamaModel = s.defaults.OllamaModel
	}
}

func (s *Service) runJob(ctx context.Context, jobID string, docs []domain.Document, p Params) {
	if err := s.process(ctx, jobID, docs, p); err != nil {
		metrics.IngestJobsTotal.WithLabelValues("error").Inc()
		s.progress.Fail(jobID)
		s.logger.Error("ingestion job failed",
			zap.String("job_id", jobID),
			zap.Error(err))
		return
	}
	metrics.IngestJobsTotal.WithLabelValues("success").Inc()
	s.logger.Info("ingestion job finished", zap.String("job_id", jobID))
}

// process runs the pipeline over the documents. Per-document failures are
// logged and skipped so one bad page does not sink the run; infrastructure
// failures (collections, cancellation) abort it.
func (s *Service) process(ctx context.Context, jobID string, docs []domain.Document, p Params) error {
	if err := s.store.EnsureCollections(ctx, p.BaseCollection, p.Filter, s.defaults.Dimensions); err != nil {
		return fmt.Errorf("ensure collections: %w", err)
	}

	var summarizer Summarizer
	if domain.ContainsCollection(p.Filter, domain.CollectionSummary) {
		summarizer = s.summarizer(p.OllamaHost, p.OllamaPort, p.OllamaModel)
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("job cancelled: %w", err)
		}

		if summarizer != nil {
			summary, err := summarizer.Summarize(ctx, doc.Text())
			if err != nil {
				// the document still ships without its summary variant
				s.logger.Warn("summarization failed",
					zap.String("url", doc.URL),
					zap.Error(err))
			} else {
				doc.SetVariant(domain.CollectionSummary, summary)
			}
		}

		embedded, err := s.encoder.Encode(ctx, doc, jobID)
		if err != nil {
			metrics.IngestDocumentsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("encoding failed, skipping document",
				zap.String("url", doc.URL),
				zap.Error(err))
			continue
		}

		if err := s.store.AddDocuments(ctx, p.BaseCollection, p.Filter, embedded); err != nil {
			metrics.IngestDocumentsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("store write failed, skipping document",
				zap.String("url", doc.URL),
				zap.Error(err))
			continue
		}

		metrics.IngestDocumentsTotal.WithLabelValues("success").Inc()
		s.logger.Debug("document ingested",
			zap.String("url", doc.URL),
			zap.Int("fragments", len(embedded)))
	}
	return nil
}
