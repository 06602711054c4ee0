// Package generation defines the chat model contract used to turn a prompt into text.
package generation

import (
	"context"

	"github.com/kailas-cloud/courserec/internal/domain/prompt"
)

// Options tune a single generation call.
type Options struct {
	Temperature float32
}

// Generator invokes a chat model and returns its raw text output.
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt, opts Options) (string, error)
}
