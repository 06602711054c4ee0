package vector

import (
	"context"

	"github.com/kailas-cloud/courserec/internal/db"
	domdoc "github.com/kailas-cloud/courserec/internal/domain/document"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	getFn         func(ctx context.Context, key string) ([]byte, error)
	setNXFn       func(ctx context.Context, key string, value []byte) (bool, error)
	incrByFn      func(ctx context.Context, key string, val int64) (int64, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
	pingErr       error
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	if m.setNXFn != nil {
		return m.setNXFn(ctx, key, value)
	}
	return true, nil
}

func (m *mockStore) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	if m.incrByFn != nil {
		return m.incrByFn(ctx, key, val)
	}
	return val, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

func (m *mockStore) Ping(context.Context) error {
	return m.pingErr
}

func testRepo(s store, mode domvec.Mode, dim int) *Repo {
	r := New(s, "test:", mode, HNSWConfig{M: 16, EFConstruction: 200})
	r.dim = dim
	return r
}

func record(id int64, title string, vec []float32) domvec.Record {
	return domvec.Record{
		Embedding: vec,
		Content:   title + "\nSubject: CS\nTags: ",
		Metadata:  domdoc.Metadata{ID: id, Title: title, Subject: "CS", URL: "https://c/" + title},
	}
}
