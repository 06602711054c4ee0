package generation

import (
	"context"

	domgen "github.com/kailas-cloud/courserec/internal/domain/generation"
	"github.com/kailas-cloud/courserec/internal/domain/prompt"
)

// Generator invokes a chat model.
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt, opts domgen.Options) (string, error)
}
