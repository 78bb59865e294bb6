// Package qdrant implements the vector store against the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rura-ai/rura/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// DefaultTimeout applies per REST call.
const DefaultTimeout = 15 * time.Second

// Config holds connection parameters for a Qdrant store.
type Config struct {
	URL     string // e.g. http://localhost:6333
	APIKey  string
	Timeout time.Duration
}

// Store implements db.Store over Qdrant's REST API. Cosine distance is
// assumed for every collection.
type Store struct {
	url    string
	apiKey string
	client *http.Client
}

// NewStore creates a Qdrant store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Ping checks connectivity via the collections listing.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.call(ctx, http.MethodGet, "/collections", nil, nil); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close is a no-op; the HTTP client holds no persistent connection state
// worth tearing down explicitly.
func (s *Store) Close() {}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// EnsureCollection creates the collection with cosine distance if missing.
func (s *Store) EnsureCollection(ctx context.Context, name string, dim int) error {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if err := s.call(ctx, http.MethodPut, "/collections/"+name, body, nil); err != nil {
		return &db.Error{Op: db.OpEnsure, Err: err}
	}
	return nil
}

// CollectionExists checks for the collection by name.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	status, err := s.head(ctx, "/collections/"+name)
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return status == http.StatusOK, nil
}

// DropCollection deletes the collection; absence is not an error.
func (s *Store) DropCollection(ctx context.Context, name string) error {
	err := s.call(ctx, http.MethodDelete, "/collections/"+name, nil, nil)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.status == http.StatusNotFound {
			return nil
		}
		return &db.Error{Op: db.OpDrop, Err: err}
	}
	return nil
}

// Upsert writes points with wait=true so subsequent searches see them.
func (s *Store) Upsert(ctx context.Context, name string, points []db.Point) error {
	if len(points) == 0 {
		return nil
	}

	items := make([]map[string]any, len(points))
	for i, p := range points {
		items[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}
	body := map[string]any{"points": items}
	if err := s.call(ctx, http.MethodPut, "/collections/"+name+"/points?wait=true", body, nil); err != nil {
		return &db.Error{Op: db.OpUpsert, Err: err}
	}
	return nil
}

// Search runs a cosine KNN query and returns scored payloads.
func (s *Store) Search(ctx context.Context, name string, vector []float32, limit int) ([]db.ScoredPoint, error) {
	if limit <= 0 {
		return nil, nil
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.call(ctx, http.MethodPost, "/collections/"+name+"/points/search", body, &resp); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	points := make([]db.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		payload := make(map[string]string, len(r.Payload))
		for k, v := range r.Payload {
			if str, ok := v.(string); ok {
				payload[k] = str
			}
		}
		points = append(points, db.ScoredPoint{
			ID:      fmt.Sprint(r.ID),
			Score:   r.Score,
			Payload: payload,
		})
	}
	return points, nil
}

// apiError carries the HTTP status of a failed Qdrant call.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("qdrant returned %d: %s", e.status, e.body)
}

// call performs one JSON request. A non-nil out decodes the response body.
func (s *Store) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &apiError{status: resp.StatusCode, body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// head issues a GET and reports only the status; Qdrant has no HEAD routes.
func (s *Store) head(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+path, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
