// Package db defines the vector store contract the pipeline persists into.
// Backends provide named collections of (id, vector, payload) points with
// cosine similarity search.
package db

import (
	"context"
	"time"
)

// Point is one stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// ScoredPoint is one search hit. Vectors are not returned.
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// Store is the vector database facade.
type Store interface {
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()

	// EnsureCollection creates the named collection with the given vector
	// dimensionality if it does not exist. Existing collections are left
	// untouched.
	EnsureCollection(ctx context.Context, name string, dim int) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	// DropCollection deletes the named collection. Absence is not an error.
	DropCollection(ctx context.Context, name string) error

	// Upsert writes points with replace semantics on id.
	Upsert(ctx context.Context, name string, points []Point) error
	// Search returns up to limit points ranked by cosine similarity.
	Search(ctx context.Context, name string, vector []float32, limit int) ([]ScoredPoint, error)
}
