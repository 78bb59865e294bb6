// Package progress tracks per-job ingestion progress, shared between the
// embedding worker (writer) and status queries (readers).
package progress

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long finished records stay visible before eviction.
const DefaultTTL = time.Hour

// Record is the externally visible progress of one ingestion job.
// Processed never exceeds Total and never decreases.
type Record struct {
	Processed int  `json:"processed"`
	Total     int  `json:"total"`
	Failed    bool `json:"failed,omitempty"`
}

type entry struct {
	rec        Record
	finishedAt time.Time // zero while the job is running
}

// Store is a process-scoped map from job id to progress record. One mutex
// guards reads and writes; critical sections are a single map access, never
// held across network or inference calls. Readers poll, there is no
// notification.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*entry
	ttl  time.Duration
	now  func() time.Time
}

// NewStore creates a progress store evicting finished records after ttl.
// A non-positive ttl falls back to DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	return NewStoreWithClock(ttl, time.Now)
}

// NewStoreWithClock injects the clock, for tests.
func NewStoreWithClock(ttl time.Duration, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		jobs: make(map[string]*entry),
		ttl:  ttl,
		now:  now,
	}
}

// Create registers a new job with the given total. An existing record under
// the same id is replaced.
func (s *Store) Create(id string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &entry{rec: Record{Total: total}}
	if total == 0 {
		e.finishedAt = s.now()
	}
	s.jobs[id] = e
}

// Increment advances a job's processed count by one. Returns false when the
// record does not exist; callers treat that as fatal sequencing corruption.
func (s *Store) Increment(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return false
	}
	if e.rec.Processed < e.rec.Total {
		e.rec.Processed++
	}
	if e.rec.Processed == e.rec.Total && e.finishedAt.IsZero() {
		e.finishedAt = s.now()
	}
	return true
}

// Fail marks a job as failed and finished. Unknown ids are ignored.
func (s *Store) Fail(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return
	}
	e.rec.Failed = true
	if e.finishedAt.IsZero() {
		e.finishedAt = s.now()
	}
}

// Get returns the current record for one job.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return Record{}, false
	}
	return e.rec, true
}

// Snapshot copies the whole progress map, evicting expired records first.
func (s *Store) Snapshot() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reapLocked()
	out := make(map[string]Record, len(s.jobs))
	for id, e := range s.jobs {
		out[id] = e.rec
	}
	return out
}

// StartReaper evicts expired records every interval until ctx is cancelled.
func (s *Store) StartReaper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				s.reapLocked()
				s.mu.Unlock()
			}
		}
	}()
}

func (s *Store) reapLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.jobs {
		if !e.finishedAt.IsZero() && e.finishedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}
