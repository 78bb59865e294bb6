package domain

import (
	"fmt"
	"strings"
)

// Collection is a logical tag partitioning document text and embeddings by
// kind. Each tag maps to its own physical vector-store collection named
// {base}_{tag}.
type Collection string

const (
	// CollectionBasic holds raw page text.
	CollectionBasic Collection = "basic"
	// CollectionSummary holds model-generated summaries.
	CollectionSummary Collection = "summary"
)

// Collections lists the known tags in declaration order. Search results are
// concatenated in this order; adding a kind requires a weight and a physical
// store mapping.
var Collections = []Collection{CollectionBasic, CollectionSummary}

// ParseCollection validates a collection tag.
func ParseCollection(s string) (Collection, error) {
	switch Collection(strings.ToLower(strings.TrimSpace(s))) {
	case CollectionBasic:
		return CollectionBasic, nil
	case CollectionSummary:
		return CollectionSummary, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, s)
	}
}

// ParseCollections parses a comma-separated list of collection tags.
// Empty input yields nil.
func ParseCollections(csv string) ([]Collection, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	var out []Collection
	for _, part := range strings.Split(csv, ",") {
		c, err := ParseCollection(part)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return NormalizeCollections(out), nil
}

// NormalizeCollections deduplicates tags and orders them by declaration order.
func NormalizeCollections(cols []Collection) []Collection {
	seen := make(map[Collection]bool, len(cols))
	for _, c := range cols {
		seen[c] = true
	}
	out := make([]Collection, 0, len(seen))
	for _, c := range Collections {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// ContainsCollection reports whether cols includes c.
func ContainsCollection(cols []Collection, c Collection) bool {
	for _, x := range cols {
		if x == c {
			return true
		}
	}
	return false
}

// Weights maps collection tags to retrieval weights used to split a search
// result budget across collections. Supplied via configuration so new kinds
// do not require a code change.
type Weights map[Collection]float64

// DefaultWeights returns the stock 0.8/0.2 basic/summary split.
func DefaultWeights() Weights {
	return Weights{
		CollectionBasic:   0.8,
		CollectionSummary: 0.2,
	}
}

// Validate checks that every weighted tag is known and no weight is negative.
func (w Weights) Validate() error {
	for c, weight := range w {
		if _, err := ParseCollection(string(c)); err != nil {
			return err
		}
		if weight < 0 {
			return fmt.Errorf("collection %s: weight must not be negative, got %v", c, weight)
		}
	}
	return nil
}

// SplitLimit divides limit across the given collections proportionally to
// their weights, rounding down, with a floor of one result for any collection
// whose weight is positive. A single active collection receives the whole
// limit. The returned slice is index-aligned with cols.
func (w Weights) SplitLimit(cols []Collection, limit int) []int {
	limits := make([]int, len(cols))
	if limit <= 0 || len(cols) == 0 {
		return limits
	}
	if len(cols) == 1 {
		limits[0] = limit
		return limits
	}
	for i, c := range cols {
		weight := w[c]
		share := int(float64(limit) * weight)
		if share == 0 && weight > 0 {
			share = 1
		}
		limits[i] = share
	}
	return limits
}
