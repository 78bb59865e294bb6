// Package store maps the logical collection dimension onto physically
// separate vector-store collections and provides weighted add/search across
// them.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rura-ai/rura/internal/db"
	"github.com/rura-ai/rura/internal/domain"
)

// Adapter partitions embedded documents into per-collection physical stores
// named {base}_{tag} and splits search budgets by collection weight.
type Adapter struct {
	db      db.Store
	weights domain.Weights
	logger  *zap.Logger
}

// New creates a collection store adapter.
func New(store db.Store, weights domain.Weights, logger *zap.Logger) *Adapter {
	if weights == nil {
		weights = domain.DefaultWeights()
	}
	return &Adapter{db: store, weights: weights, logger: logger}
}

// PhysicalName returns the backing collection name for one logical tag.
func PhysicalName(base string, c domain.Collection) string {
	return base + "_" + string(c)
}

// EnsureCollections idempotently creates one physical collection per logical
// tag. Pre-existing collections are left untouched.
func (a *Adapter) EnsureCollections(ctx context.Context, base string, cols []domain.Collection, dim int) error {
	for _, c := range domain.NormalizeCollections(cols) {
		name := PhysicalName(base, c)
		if err := a.db.EnsureCollection(ctx, name, dim); err != nil {
			return fmt.Errorf("ensure collection %s: %w", name, err)
		}
		a.logger.Debug("collection ensured", zap.String("collection", name))
	}
	return nil
}

// AddDocuments validates that every target physical collection exists, then
// partitions the documents by tag and upserts each partition. Documents whose
// tag is outside filter are silently skipped. Upsert replaces on id, so
// re-ingesting the same URL and text overwrites rather than duplicates.
func (a *Adapter) AddDocuments(ctx context.Context, base string, filter []domain.Collection, docs []domain.EmbeddedDocument) error {
	filter = domain.NormalizeCollections(filter)

	for _, c := range filter {
		name := PhysicalName(base, c)
		exists, err := a.db.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("check collection %s: %w", name, err)
		}
		if !exists {
			return fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
		}
	}

	partitions := make(map[domain.Collection][]db.Point, len(filter))
	for _, doc := range docs {
		tag := doc.Metadata.Collection
		if !domain.ContainsCollection(filter, tag) {
			continue
		}
		partitions[tag] = append(partitions[tag], db.Point{
			ID:      doc.Metadata.ID,
			Vector:  doc.Vector,
			Payload: doc.Metadata.Payload(),
		})
	}

	for _, c := range filter {
		points := partitions[c]
		if len(points) == 0 {
			continue
		}
		name := PhysicalName(base, c)
		if err := a.db.Upsert(ctx, name, points); err != nil {
			return fmt.Errorf("upsert into %s: %w", name, err)
		}
		a.logger.Debug("points upserted",
			zap.String("collection", name),
			zap.Int("points", len(points)))
	}
	return nil
}

// SearchDocuments splits limit across the active collections proportionally
// to their weights and queries each physical collection independently.
// Results are concatenated in collection declaration order; the weight split
// is the ranking policy, no cross-collection re-ranking happens. Returned
// documents carry metadata only.
func (a *Adapter) SearchDocuments(ctx context.Context, base string, filter []domain.Collection, vector []float32, limit int) ([]domain.EmbeddedDocument, error) {
	filter = domain.NormalizeCollections(filter)
	limits := a.weights.SplitLimit(filter, limit)

	var out []domain.EmbeddedDocument
	for i, c := range filter {
		if limits[i] == 0 {
			continue
		}
		name := PhysicalName(base, c)
		points, err := a.db.Search(ctx, name, vector, limits[i])
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", name, err)
		}
		for _, p := range points {
			meta, err := domain.MetadataFromPayload(p.Payload)
			if err != nil {
				a.logger.Warn("dropping result with malformed payload",
					zap.String("collection", name),
					zap.String("point_id", p.ID),
					zap.Error(err))
				continue
			}
			out = append(out, domain.EmbeddedDocument{Metadata: meta})
		}
	}
	return out, nil
}

// DropCollections deletes each physical collection if present; absence is
// not an error.
func (a *Adapter) DropCollections(ctx context.Context, base string, cols []domain.Collection) error {
	for _, c := range domain.NormalizeCollections(cols) {
		name := PhysicalName(base, c)
		if err := a.db.DropCollection(ctx, name); err != nil {
			return fmt.Errorf("drop collection %s: %w", name, err)
		}
		a.logger.Info("collection dropped", zap.String("collection", name))
	}
	return nil
}
