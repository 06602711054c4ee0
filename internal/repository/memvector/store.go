// Package memvector is an in-process vector store using brute-force cosine similarity.
package memvector

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/kailas-cloud/courserec/internal/domain"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
)

type entry struct {
	record domvec.Record
	norm   float64
	seq    int64
}

// Store keeps records in memory. The dimension is fixed by the first write.
type Store struct {
	mu        sync.RWMutex
	mode      domvec.Mode
	dimension int
	seq       int64
	entries   []entry
	byID      map[int64]int
}

// New creates an empty store.
func New(mode domvec.Mode) *Store {
	return &Store{mode: mode, byID: make(map[int64]int)}
}

// Upsert stores records. In upsert mode a record replaces the one with the same item id.
func (s *Store) Upsert(_ context.Context, records []domvec.Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if dim == 0 {
		dim = len(records[0].Embedding)
	}
	if dim == 0 {
		return fmt.Errorf("%w: empty embedding", domain.ErrVectorDimMismatch)
	}
	for i := range records {
		if err := domain.CheckDimension(records[i].Embedding, dim); err != nil {
			return fmt.Errorf("record %d (item %d): %w", i, records[i].Metadata.ID, err)
		}
	}
	s.dimension = dim

	for _, rec := range records {
		s.seq++
		e := entry{record: copyRecord(rec), norm: norm(rec.Embedding), seq: s.seq}
		if s.mode == domvec.ModeUpsertByID {
			if pos, ok := s.byID[rec.Metadata.ID]; ok {
				s.entries[pos] = e
				continue
			}
			s.byID[rec.Metadata.ID] = len(s.entries)
		}
		s.entries = append(s.entries, e)
	}
	return nil
}

// SimilaritySearch returns up to k records by descending cosine similarity.
func (s *Store) SimilaritySearch(_ context.Context, embedding []float32, k int) ([]domvec.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 || k <= 0 {
		return []domvec.Match{}, nil
	}
	if err := domain.CheckDimension(embedding, s.dimension); err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	qn := norm(embedding)
	matches := make([]domvec.Match, len(s.entries))
	for i, e := range s.entries {
		matches[i] = domvec.Match{
			Content:  e.record.Content,
			Metadata: e.record.Metadata,
			Score:    cosine(e.record.Embedding, e.norm, embedding, qn),
			Seq:      e.seq,
		}
	}
	return domvec.Rank(matches, k), nil
}

// Count returns the number of stored records.
func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Dimension returns the fixed dimension, or 0 before the first write.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func copyRecord(r domvec.Record) domvec.Record {
	emb := make([]float32, len(r.Embedding))
	copy(emb, r.Embedding)
	r.Embedding = emb
	return r
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
