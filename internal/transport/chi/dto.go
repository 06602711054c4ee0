package chi

import (
	domrec "github.com/kailas-cloud/courserec/internal/domain/recommendation"
)

// ErrorCode is a machine-readable error identifier returned to clients.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeInvalidQuery           ErrorCode = "invalid_query"
	ErrorCodeCatalogEmpty           ErrorCode = "catalog_empty"
	ErrorCodeCatalogUnavailable     ErrorCode = "catalog_unavailable"
	ErrorCodeRateLimited            ErrorCode = "rate_limited"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeGenerationFailed       ErrorCode = "generation_failed"
	ErrorCodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	ErrorCodeVectorStoreUnavailable ErrorCode = "vector_store_unavailable"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// IngestResponse reports an ingestion run.
type IngestResponse struct {
	Message          string  `json:"message"`
	Total            int     `json:"total"`
	SucceededBatches int     `json:"succeeded_batches"`
	FailedBatches    int     `json:"failed_batches"`
	FailedItemIDs    []int64 `json:"failed_item_ids"`
}

// RecommendationRequest is the body of POST /recommendations.
type RecommendationRequest struct {
	Query string `json:"query" validate:"notblank,max=2000"`
}

// RecommendationResponse carries the recommendation list and the parse status.
type RecommendationResponse struct {
	Recommendations []domrec.Recommendation `json:"recommendations"`
	Status          domrec.Status           `json:"status"`
}

// HealthResponse reports component availability.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}
