// Package encoder bridges asynchronous callers into a single dedicated
// embedding worker. Inference calls are serialized because the underlying
// embedding capability is not assumed safe for concurrent use.
package encoder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rura-ai/rura/internal/domain"
	"github.com/rura-ai/rura/internal/metrics"
)

// DefaultQueueCapacity bounds the request channel. A full channel blocks
// producers, which is the intended admission control for the inference stage.
const DefaultQueueCapacity = 100

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProgressReporter records per-document completion for tracked jobs.
type ProgressReporter interface {
	Increment(id string) bool
}

type request struct {
	doc   domain.Document
	jobID string
	reply chan response
}

type response struct {
	docs []domain.EmbeddedDocument
	err  error
}

// Worker owns the embedding capability. Exactly one Run loop consumes the
// queue in FIFO order; documents submitted first are embedded first, so
// progress increments happen in submission order.
type Worker struct {
	embedder    Embedder
	progress    ProgressReporter
	tasks       chan request
	includeMeta bool
	logger      *zap.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithQueueCapacity overrides the request channel capacity.
func WithQueueCapacity(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.tasks = make(chan request, n)
		}
	}
}

// WithMetaFragments toggles compact meta fragment production.
func WithMetaFragments(enabled bool) Option {
	return func(w *Worker) { w.includeMeta = enabled }
}

// New creates an embedding worker. Run must be started on its own goroutine
// before Encode is called.
func New(embedder Embedder, progress ProgressReporter, logger *zap.Logger, opts ...Option) *Worker {
	w := &Worker{
		embedder:    embedder,
		progress:    progress,
		tasks:       make(chan request, DefaultQueueCapacity),
		includeMeta: true,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes the queue until ctx is cancelled. A vanished progress record
// terminates the loop: proceeding with unknown job state would hide the
// corruption from the caller.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-w.tasks:
			metrics.EncodeQueueDepth.Set(float64(len(w.tasks)))
			docs, err := w.encode(ctx, req.doc)
			req.reply <- response{docs: docs, err: err}
			if req.jobID == "" {
				continue
			}
			if !w.progress.Increment(req.jobID) {
				w.logger.Error("progress record vanished, stopping worker",
					zap.String("job_id", req.jobID))
				return fmt.Errorf("progress record for job %s: %w", req.jobID, domain.ErrJobNotFound)
			}
		}
	}
}

// Encode submits one document and waits for its embedded fragments. Pass an
// empty jobID for untracked calls. Blocks while the queue is full; both the
// enqueue and the wait observe ctx.
func (w *Worker) Encode(ctx context.Context, doc domain.Document, jobID string) ([]domain.EmbeddedDocument, error) {
	req := request{doc: doc, jobID: jobID, reply: make(chan response, 1)}
	select {
	case w.tasks <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.docs, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// encode chunks the document and embeds every fragment. The first fragment
// failure aborts the document; the caller decides whether the ingestion run
// skips it or stops.
func (w *Worker) encode(ctx context.Context, doc domain.Document) ([]domain.EmbeddedDocument, error) {
	fragments, err := doc.Fragments(w.includeMeta)
	if err != nil {
		return nil, fmt.Errorf("chunk document %s: %w", doc.URL, err)
	}

	out := make([]domain.EmbeddedDocument, 0, len(fragments))
	for i, frag := range fragments {
		vector, err := w.embedder.Embed(ctx, frag.Text)
		if err != nil {
			return nil, fmt.Errorf("embed fragment %d of %s: %w", i, doc.URL, err)
		}
		out = append(out, domain.EmbeddedDocument{
			Vector:   vector,
			Metadata: domain.NewMetadata(doc, frag),
		})
	}

	w.logger.Debug("document encoded",
		zap.String("url", doc.URL),
		zap.Int("fragments", len(fragments)))
	return out, nil
}
