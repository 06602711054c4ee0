// Package vector stores course embeddings in a Redis or Valkey search index.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/kailas-cloud/courserec/internal/db"
	"github.com/kailas-cloud/courserec/internal/domain"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
)

// store is the consumer interface for the vector repository (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	Ping(ctx context.Context) error
}

// Repo implements the vector writer and searcher over an FT index.
type Repo struct {
	store  store
	prefix string
	mode   domvec.Mode
	hnsw   HNSWConfig
	dim    int
	newID  func() string
}

// New creates a vector repository. prefix namespaces every key it touches.
func New(s store, prefix string, mode domvec.Mode, hnsw HNSWConfig) *Repo {
	return &Repo{
		store:  s,
		prefix: prefix,
		mode:   mode,
		hnsw:   hnsw,
		newID:  uuid.NewString,
	}
}

// EnsureIndex pins the index dimension and creates the index when absent.
// A dimension already recorded for this prefix must match dim.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("ensure index: dimension must be positive, got %d", dim)
	}

	written, err := r.store.SetNX(ctx, r.dimKey(), []byte(strconv.Itoa(dim)))
	if err != nil {
		return fmt.Errorf("record index dimension: %w", err)
	}
	if !written {
		raw, err := r.store.Get(ctx, r.dimKey())
		if err != nil {
			return fmt.Errorf("read index dimension: %w", err)
		}
		stored, err := strconv.Atoi(string(raw))
		if err != nil {
			return fmt.Errorf("parse index dimension %q: %w", raw, err)
		}
		if stored != dim {
			return fmt.Errorf("%w: index %s holds %d-dim vectors, provider produces %d",
				domain.ErrVectorDimMismatch, r.indexName(), stored, dim)
		}
	}

	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName(), err)
	}
	if !exists {
		def, err := r.buildIndex(dim)
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", r.indexName(), err)
		}
	}

	r.dim = dim
	return nil
}

// Upsert writes records in one pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, records []domvec.Record) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		if err := domain.CheckDimension(records[i].Embedding, r.dim); err != nil {
			return fmt.Errorf("record %d (item %d): %w", i, records[i].Metadata.ID, err)
		}
	}

	last, err := r.store.IncrBy(ctx, r.seqKey(), int64(len(records)))
	if err != nil {
		return fmt.Errorf("%w: allocate sequence: %w", domain.ErrVectorStoreWrite, err)
	}
	first := last - int64(len(records)) + 1

	items := make([]db.HashSetItem, len(records))
	for i, rec := range records {
		fields, err := buildHashFields(rec, first+int64(i))
		if err != nil {
			return fmt.Errorf("%w: encode item %d: %w", domain.ErrVectorStoreWrite, rec.Metadata.ID, err)
		}
		items[i] = db.HashSetItem{Key: r.recordKey(rec), Fields: fields}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStoreWrite, err)
	}
	return nil
}

// SimilaritySearch returns up to k records nearest to embedding, best first.
func (r *Repo) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]domvec.Match, error) {
	if k <= 0 {
		return []domvec.Match{}, nil
	}
	if err := domain.CheckDimension(embedding, r.dim); err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		VectorField:  fieldVector,
		Vector:       embedding,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: knn %s: %w", domain.ErrVectorStoreRead, r.indexName(), err)
	}
	if result == nil || len(result.Entries) == 0 {
		return []domvec.Match{}, nil
	}

	matches := make([]domvec.Match, 0, len(result.Entries))
	for _, e := range result.Entries {
		matches = append(matches, parseMatch(e.Fields, e.Score))
	}
	return domvec.Rank(matches, k), nil
}

// Count returns the number of stored records. A missing index counts as empty.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: count %s: %w", domain.ErrVectorStoreRead, r.indexName(), err)
	}
	return n, nil
}

// Ping checks the underlying connection.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", domain.ErrVectorStoreRead, err)
	}
	return nil
}

func (r *Repo) recordKey(rec domvec.Record) string {
	if r.mode == domvec.ModeAppend {
		return r.recordPrefix() + r.newID()
	}
	return r.recordPrefix() + strconv.FormatInt(rec.Metadata.ID, 10)
}
