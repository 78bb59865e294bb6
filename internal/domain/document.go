package domain

import (
	"crypto/sha1" //nolint:gosec // content identity, not a security boundary
	"encoding/hex"
	"time"
)

// Document is one crawled page. Its hash is derived from URL and raw text so
// re-crawling an unchanged page yields the same identity.
type Document struct {
	Hash      string
	Title     string
	URL       string
	Timestamp time.Time
	// Variants holds the full text per collection tag. The basic variant is
	// always present before chunking; side computations append further
	// variants without touching existing ones.
	Variants map[Collection]string
}

// NewDocument creates a document with the raw page text under the basic
// collection.
func NewDocument(url, title, text string) Document {
	sum := sha1.Sum([]byte(url + text)) //nolint:gosec // dedup key
	return Document{
		Hash:      hex.EncodeToString(sum[:]),
		Title:     title,
		URL:       url,
		Timestamp: time.Now().UTC(),
		Variants:  map[Collection]string{CollectionBasic: text},
	}
}

// SetVariant adds or replaces the text for one collection tag.
func (d *Document) SetVariant(c Collection, text string) {
	if d.Variants == nil {
		d.Variants = make(map[Collection]string, 1)
	}
	d.Variants[c] = text
}

// Variant returns the text stored for a collection tag.
func (d *Document) Variant(c Collection) (string, bool) {
	text, ok := d.Variants[c]
	return text, ok
}

// Text returns the basic variant, the raw crawled page text.
func (d *Document) Text() string {
	return d.Variants[CollectionBasic]
}
