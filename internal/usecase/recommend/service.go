// Package recommend runs the query pipeline: retrieve, compose, generate, parse.
package recommend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/courserec/internal/domain/prompt"
	domrec "github.com/kailas-cloud/courserec/internal/domain/recommendation"
	"github.com/kailas-cloud/courserec/internal/metrics"
)

// Service produces course recommendations for free-text queries.
type Service struct {
	retriever Retriever
	gen       Generator
	logger    *zap.Logger
}

// New creates a recommendation service.
func New(retriever Retriever, gen Generator, logger *zap.Logger) *Service {
	return &Service{retriever: retriever, gen: gen, logger: logger}
}

// Recommend returns recommendations for query using up to k retrieved matches.
// With no matches the result is empty and the model is not called.
// Malformed model output degrades to the fallback list and is never an error.
func (s *Service) Recommend(ctx context.Context, query string, k int) (domrec.Result, error) {
	matches, err := s.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return domrec.Result{}, fmt.Errorf("retrieve: %w", err)
	}
	if len(matches) == 0 {
		metrics.RecommendationsTotal.WithLabelValues(string(domrec.StatusEmpty)).Inc()
		return domrec.Empty(), nil
	}

	raw, err := s.gen.Generate(ctx, prompt.Compose(query, matches))
	if err != nil {
		return domrec.Result{}, fmt.Errorf("generate: %w", err)
	}

	res := domrec.Parse(raw, matches)
	metrics.RecommendationsTotal.WithLabelValues(string(res.Status)).Inc()
	if res.Status == domrec.StatusFallback {
		s.logger.Warn("Model output unparseable, using retrieved matches",
			zap.Int("matches", len(matches)),
			zap.Int("output_len", len(raw)),
		)
	}
	return res, nil
}
