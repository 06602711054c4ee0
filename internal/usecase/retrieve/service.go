// Package retrieve finds the catalog records most similar to a free-text query.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/courserec/internal/domain"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
	"github.com/kailas-cloud/courserec/internal/metrics"
)

// DefaultMaxK caps k.
const DefaultMaxK = 50

// Service embeds queries and searches the vector store.
type Service struct {
	store VectorSearcher
	embed Embedder
	maxK  int
}

// New creates a retrieval service.
func New(store VectorSearcher, embed Embedder) *Service {
	return &Service{store: store, embed: embed, maxK: DefaultMaxK}
}

// WithMaxK overrides the largest k passed to the store. Non-positive values keep the current setting.
func (s *Service) WithMaxK(maxK int) *Service {
	if maxK > 0 {
		s.maxK = maxK
	}
	return s
}

// Retrieve returns at most k matches ordered by descending score, ties by insertion order.
// k == 0 and an empty store yield an empty slice. k above the maximum is clamped.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]domvec.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty: %w", domain.ErrInvalidQuery)
	}
	if k < 0 {
		return nil, fmt.Errorf("k must be non-negative, got %d: %w", k, domain.ErrInvalidQuery)
	}
	if k == 0 {
		metrics.RetrievedMatches.Observe(0)
		return []domvec.Match{}, nil
	}
	k = min(k, s.maxK)

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(emb.TotalTokens)

	matches, err := s.store.SimilaritySearch(ctx, emb.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if matches == nil {
		matches = []domvec.Match{}
	}
	matches = domvec.Rank(matches, k)
	metrics.RetrievedMatches.Observe(float64(len(matches)))
	return matches, nil
}
