package recommend

import (
	"context"

	"github.com/kailas-cloud/courserec/internal/domain/prompt"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
)

// Retriever finds the matches for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domvec.Match, error)
}

// Generator turns a prompt into raw model text.
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt) (string, error)
}
