package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rura-ai/rura/internal/db"
	"github.com/rura-ai/rura/internal/domain"
)

type fakeStore struct {
	collections map[string]bool
	upserts     map[string][]db.Point
	searched    map[string]int // collection -> requested limit
	results     map[string][]db.ScoredPoint
	existsErr   error
}

func newFakeStore(existing ...string) *fakeStore {
	f := &fakeStore{
		collections: make(map[string]bool),
		upserts:     make(map[string][]db.Point),
		searched:    make(map[string]int),
		results:     make(map[string][]db.ScoredPoint),
	}
	for _, name := range existing {
		f.collections[name] = true
	}
	return f
}

func (f *fakeStore) Ping(context.Context) error                        { return nil }
func (f *fakeStore) WaitForReady(context.Context, time.Duration) error { return nil }
func (f *fakeStore) Close()                                            {}

func (f *fakeStore) EnsureCollection(_ context.Context, name string, _ int) error {
	f.collections[name] = true
	return nil
}

func (f *fakeStore) CollectionExists(_ context.Context, name string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.collections[name], nil
}

func (f *fakeStore) DropCollection(_ context.Context, name string) error {
	delete(f.collections, name)
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, name string, points []db.Point) error {
	f.upserts[name] = append(f.upserts[name], points...)
	return nil
}

func (f *fakeStore) Search(_ context.Context, name string, _ []float32, limit int) ([]db.ScoredPoint, error) {
	f.searched[name] = limit
	return f.results[name], nil
}

func embeddedDoc(c domain.Collection, text string) domain.EmbeddedDocument {
	doc := domain.NewDocument("https://example.com/a", "A", text)
	return domain.EmbeddedDocument{
		Vector:   []float32{1, 2},
		Metadata: domain.NewMetadata(doc, domain.Fragment{Text: text, Collection: c}),
	}
}

func TestPhysicalName(t *testing.T) {
	assert.Equal(t, "kb_basic", PhysicalName("kb", domain.CollectionBasic))
	assert.Equal(t, "kb_summary", PhysicalName("kb", domain.CollectionSummary))
}

func TestEnsureCollections(t *testing.T) {
	fake := newFakeStore()
	a := New(fake, nil, zap.NewNop())

	err := a.EnsureCollections(context.Background(), "kb", domain.Collections, 384)
	require.NoError(t, err)
	assert.True(t, fake.collections["kb_basic"])
	assert.True(t, fake.collections["kb_summary"])
}

func TestAddDocuments_PartitionsByTag(t *testing.T) {
	fake := newFakeStore("kb_basic", "kb_summary")
	a := New(fake, nil, zap.NewNop())

	docs := []domain.EmbeddedDocument{
		embeddedDoc(domain.CollectionBasic, "one"),
		embeddedDoc(domain.CollectionSummary, "two"),
		embeddedDoc(domain.CollectionBasic, "three"),
	}
	err := a.AddDocuments(context.Background(), "kb", domain.Collections, docs)
	require.NoError(t, err)

	assert.Len(t, fake.upserts["kb_basic"], 2)
	assert.Len(t, fake.upserts["kb_summary"], 1)
}

func TestAddDocuments_SkipsTagsOutsideFilter(t *testing.T) {
	fake := newFakeStore("kb_basic")
	a := New(fake, nil, zap.NewNop())

	docs := []domain.EmbeddedDocument{
		embeddedDoc(domain.CollectionBasic, "one"),
		embeddedDoc(domain.CollectionSummary, "two"),
	}
	err := a.AddDocuments(context.Background(), "kb",
		[]domain.Collection{domain.CollectionBasic}, docs)
	require.NoError(t, err)

	assert.Len(t, fake.upserts["kb_basic"], 1)
	assert.Empty(t, fake.upserts["kb_summary"])
}

func TestAddDocuments_MissingCollectionFailsFast(t *testing.T) {
	fake := newFakeStore("kb_basic") // kb_summary missing
	a := New(fake, nil, zap.NewNop())

	err := a.AddDocuments(context.Background(), "kb", domain.Collections,
		[]domain.EmbeddedDocument{embeddedDoc(domain.CollectionBasic, "one")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCollectionNotFound))
	assert.Empty(t, fake.upserts, "nothing may be written when a target collection is absent")
}

func TestSearchDocuments_WeightedLimits(t *testing.T) {
	fake := newFakeStore("kb_basic", "kb_summary")
	fake.results["kb_basic"] = []db.ScoredPoint{
		{ID: "1", Score: 0.9, Payload: embeddedDoc(domain.CollectionBasic, "one").Metadata.Payload()},
	}
	fake.results["kb_summary"] = []db.ScoredPoint{
		{ID: "2", Score: 0.8, Payload: embeddedDoc(domain.CollectionSummary, "two").Metadata.Payload()},
	}
	a := New(fake, nil, zap.NewNop())

	docs, err := a.SearchDocuments(context.Background(), "kb", domain.Collections, []float32{1, 2}, 10)
	require.NoError(t, err)

	assert.Equal(t, 8, fake.searched["kb_basic"])
	assert.Equal(t, 2, fake.searched["kb_summary"])

	require.Len(t, docs, 2)
	assert.Equal(t, domain.CollectionBasic, docs[0].Metadata.Collection)
	assert.Equal(t, domain.CollectionSummary, docs[1].Metadata.Collection)
	assert.Nil(t, docs[0].Vector, "search results carry metadata only")
}

func TestSearchDocuments_DropsMalformedPayloads(t *testing.T) {
	fake := newFakeStore("kb_basic")
	fake.results["kb_basic"] = []db.ScoredPoint{
		{ID: "1", Payload: map[string]string{"collection": "bogus"}},
		{ID: "2", Payload: embeddedDoc(domain.CollectionBasic, "ok").Metadata.Payload()},
	}
	a := New(fake, nil, zap.NewNop())

	docs, err := a.SearchDocuments(context.Background(), "kb",
		[]domain.Collection{domain.CollectionBasic}, []float32{1}, 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ok", docs[0].Metadata.Text)
}

func TestSearchDocuments_ZeroWeightSkipsBackend(t *testing.T) {
	fake := newFakeStore("kb_basic", "kb_summary")
	weights := domain.Weights{domain.CollectionBasic: 1, domain.CollectionSummary: 0}
	a := New(fake, weights, zap.NewNop())

	_, err := a.SearchDocuments(context.Background(), "kb", domain.Collections, []float32{1}, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, fake.searched["kb_basic"])
	_, touched := fake.searched["kb_summary"]
	assert.False(t, touched, "zero-weight collection must not be queried")
}

func TestDropCollections(t *testing.T) {
	fake := newFakeStore("kb_basic")
	a := New(fake, nil, zap.NewNop())

	// kb_summary absent, still no error.
	err := a.DropCollections(context.Background(), "kb", domain.Collections)
	require.NoError(t, err)
	assert.Empty(t, fake.collections)
}
