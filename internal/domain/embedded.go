package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Metadata is the payload persisted alongside a fragment's vector and
// reconstructed from search results.
type Metadata struct {
	ID         string     `json:"id"`
	Hash       string     `json:"hash"`
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Text       string     `json:"text"`
	Collection Collection `json:"collection"`
	Timestamp  string     `json:"timestamp"`
}

// EmbeddedDocument is a fragment plus its embedding vector. Search results
// carry metadata only; vectors are not needed downstream.
type EmbeddedDocument struct {
	Vector   []float32
	Metadata Metadata
}

// NewMetadata derives the persisted payload for one fragment. The point id is
// a UUIDv5 over hash and fragment text, so re-ingesting the same URL and text
// overwrites instead of duplicating.
func NewMetadata(doc Document, frag Fragment) Metadata {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(doc.Hash+frag.Text))
	return Metadata{
		ID:         id.String(),
		Hash:       doc.Hash,
		Title:      doc.Title,
		URL:        doc.URL,
		Text:       frag.Text,
		Collection: frag.Collection,
		Timestamp:  doc.Timestamp.Format(time.RFC3339),
	}
}

// Payload flattens the metadata into the string map stored with the point.
func (m Metadata) Payload() map[string]string {
	return map[string]string{
		"id":         m.ID,
		"hash":       m.Hash,
		"title":      m.Title,
		"url":        m.URL,
		"text":       m.Text,
		"collection": string(m.Collection),
		"timestamp":  m.Timestamp,
	}
}

// MetadataFromPayload rebuilds metadata from a stored payload.
func MetadataFromPayload(payload map[string]string) (Metadata, error) {
	collection, err := ParseCollection(payload["collection"])
	if err != nil {
		return Metadata{}, fmt.Errorf("payload collection: %w", err)
	}
	m := Metadata{
		ID:         payload["id"],
		Hash:       payload["hash"],
		Title:      payload["title"],
		URL:        payload["url"],
		Text:       payload["text"],
		Collection: collection,
		Timestamp:  payload["timestamp"],
	}
	if m.ID == "" {
		return Metadata{}, fmt.Errorf("payload is missing id")
	}
	return m, nil
}
