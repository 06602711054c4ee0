package retrieve

import (
	"context"

	"github.com/kailas-cloud/courserec/internal/domain"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
)

// VectorSearcher runs k-nearest-neighbor queries against stored records.
type VectorSearcher interface {
	SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]domvec.Match, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
