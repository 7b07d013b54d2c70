package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRecallUnavailable is returned when the embedding provider or vector index fails
	ErrRecallUnavailable = errors.New("semantic recall unavailable")

	// ErrMalformedResponse is returned when a language model answer cannot be parsed
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrItemNotFound is returned when a catalog item does not exist
	ErrItemNotFound = errors.New("catalog item not found")

	// ErrCatalogUnavailable is returned when the catalog store cannot be read
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrInvalidCatalogItem is returned when a catalog item violates its invariants
	ErrInvalidCatalogItem = errors.New("invalid catalog item")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrDimensionMismatch is returned when a vector has the wrong length for the index
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
