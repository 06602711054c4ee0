package domain

import "errors"

var (
	// ErrCatalogEmpty signals that there is nothing to ingest.
	ErrCatalogEmpty = errors.New("catalog empty")
	// ErrCatalogUnavailable signals that the catalog source could not be read.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrInvalidQuery signals a rejected caller input on the query path.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrVectorDimMismatch signals an embedding whose dimension differs from the index.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrVectorStoreWrite signals a failed vector store write.
	ErrVectorStoreWrite = errors.New("vector store write failed")
	// ErrVectorStoreRead signals a failed similarity search.
	ErrVectorStoreRead = errors.New("vector store read failed")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationFailed signals a generation timeout or upstream failure after retries.
	ErrGenerationFailed = errors.New("model generation failed")
)
