package domain

import "errors"

var (
	// ErrEmptyURL signals a missing mandatory URL parameter.
	ErrEmptyURL = errors.New("url is empty")
	// ErrEmptyQuery signals a missing query string.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrEmptyDocument signals a document with no text to chunk.
	ErrEmptyDocument = errors.New("document has no text")
	// ErrUnknownCollection signals a collection tag outside the known set.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrCollectionNotFound signals a missing physical collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrJobNotFound signals a vanished progress record. The embedding worker
	// treats this as fatal rather than continuing with unknown state.
	ErrJobNotFound = errors.New("job not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
)
