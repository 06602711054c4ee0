package ingest

import (
	"context"

	"github.com/kailas-cloud/courserec/internal/domain"
	domcat "github.com/kailas-cloud/courserec/internal/domain/catalog"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
)

// CatalogSource reads the full course catalog.
type CatalogSource interface {
	ListAll(ctx context.Context) ([]domcat.Item, error)
}

// VectorWriter persists embedded records.
type VectorWriter interface {
	Upsert(ctx context.Context, records []domvec.Record) error
}

// RecordCounter is implemented by stores that can report how many records they hold.
type RecordCounter interface {
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes text into embeddings. BatchEmbed is used when the embedder implements it.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
