package ingest

import (
	"context"
	"strings"
	"sync"

	"github.com/kailas-cloud/courserec/internal/domain"
	domcat "github.com/kailas-cloud/courserec/internal/domain/catalog"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
)

// --- Mocks ---

type mockCatalog struct {
	items []domcat.Item
	err   error
}

func (m *mockCatalog) ListAll(_ context.Context) ([]domcat.Item, error) {
	return m.items, m.err
}

type mockWriter struct {
	mu      sync.Mutex
	batches [][]domvec.Record
	failOn  int64 // fail any batch containing this item id
	err     error
}

func (m *mockWriter) Upsert(_ context.Context, records []domvec.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if m.failOn != 0 && r.Metadata.ID == m.failOn {
			return m.err
		}
	}
	m.batches = append(m.batches, records)
	return nil
}

func (m *mockWriter) storedIDs() map[int64]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[int64]bool)
	for _, b := range m.batches {
		for _, r := range b {
			ids[r.Metadata.ID] = true
		}
	}
	return ids
}

// countingWriter also reports its size.
type countingWriter struct {
	mockWriter
	countErr error
}

func (c *countingWriter) Count(context.Context) (int, error) {
	if c.countErr != nil {
		return 0, c.countErr
	}
	return len(c.storedIDs()), nil
}

// mockEmbedder returns a fixed vector per text and fails batches containing failText.
type mockEmbedder struct {
	mu         sync.Mutex
	failText   string
	err        error
	short      bool // return one embedding fewer than requested
	tokens     int
	batchCalls int
	onBatch    func()
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	m.batchCalls++
	onBatch := m.onBatch
	m.mu.Unlock()
	if onBatch != nil {
		onBatch()
	}

	for _, t := range texts {
		if m.failText != "" && strings.Contains(t, m.failText) {
			return domain.BatchEmbeddingResult{}, m.err
		}
	}
	n := len(texts)
	if m.short {
		n--
	}
	embs := make([][]float32, n)
	for i := range embs {
		embs[i] = []float32{1, 0}
	}
	return domain.BatchEmbeddingResult{Embeddings: embs, TotalTokens: m.tokens}, nil
}

// plainEmbedder implements only Embed.
type plainEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (m *plainEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return domain.EmbeddingResult{Embedding: []float32{0, 1}, TotalTokens: 1}, nil
}

func items(n int) []domcat.Item {
	out := make([]domcat.Item, n)
	for i := range out {
		out[i] = domcat.Item{
			ID:      int64(i + 1),
			Title:   "Course " + string(rune('A'+i)),
			Subject: "CS",
			Tags:    []string{"tag"},
		}
	}
	return out
}
