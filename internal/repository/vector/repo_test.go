package vector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/courserec/internal/db"
	"github.com/kailas-cloud/courserec/internal/domain"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
)

func TestEnsureIndex_CreatesWhenAbsent(t *testing.T) {
	var created *db.IndexDefinition
	ms := &mockStore{
		createIndexFn: func(_ context.Context, def *db.IndexDefinition) error {
			created = def
			return nil
		},
	}
	r := testRepo(ms, domvec.ModeUpsertByID, 0)

	if err := r.EnsureIndex(context.Background(), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected index to be created")
	}
	if created.Name != "test:courses" || created.Prefix != "test:rec:" {
		t.Errorf("unexpected index: %s", created)
	}
	if r.dim != 4 {
		t.Errorf("dim = %d, want 4", r.dim)
	}
}

func TestEnsureIndex_DimensionMismatch(t *testing.T) {
	ms := &mockStore{
		setNXFn: func(context.Context, string, []byte) (bool, error) { return false, nil },
		getFn:   func(context.Context, string) ([]byte, error) { return []byte("1536"), nil },
	}
	r := testRepo(ms, domvec.ModeUpsertByID, 0)

	err := r.EnsureIndex(context.Background(), 768)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestEnsureIndex_ExistingIndexSameDim(t *testing.T) {
	ms := &mockStore{
		setNXFn:       func(context.Context, string, []byte) (bool, error) { return false, nil },
		getFn:         func(context.Context, string) ([]byte, error) { return []byte("4"), nil },
		indexExistsFn: func(context.Context, string) (bool, error) { return true, nil },
		createIndexFn: func(context.Context, *db.IndexDefinition) error {
			t.Fatal("index must not be recreated")
			return nil
		},
	}
	r := testRepo(ms, domvec.ModeUpsertByID, 0)
	if err := r.EnsureIndex(context.Background(), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_CreateRaceTolerated(t *testing.T) {
	ms := &mockStore{
		createIndexFn: func(context.Context, *db.IndexDefinition) error { return db.ErrIndexExists },
	}
	r := testRepo(ms, domvec.ModeUpsertByID, 0)
	if err := r.EnsureIndex(context.Background(), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpsert_KeysByItemID(t *testing.T) {
	var got []db.HashSetItem
	ms := &mockStore{
		incrByFn: func(_ context.Context, key string, val int64) (int64, error) {
			if key != "test:meta:seq" {
				t.Errorf("unexpected seq key %q", key)
			}
			return 10 + val, nil
		},
		hsetMultiFn: func(_ context.Context, items []db.HashSetItem) error {
			got = items
			return nil
		},
	}
	r := testRepo(ms, domvec.ModeUpsertByID, 2)

	err := r.Upsert(context.Background(), []domvec.Record{
		record(1, "Algorithms", []float32{1, 0}),
		record(2, "Databases", []float32{0, 1}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].Key != "test:rec:1" || got[1].Key != "test:rec:2" {
		t.Errorf("unexpected keys: %s, %s", got[0].Key, got[1].Key)
	}
	if got[0].Fields[fieldSeq] != "11" || got[1].Fields[fieldSeq] != "12" {
		t.Errorf("unexpected seqs: %s, %s", got[0].Fields[fieldSeq], got[1].Fields[fieldSeq])
	}
	if got[0].Fields[fieldTags] != "[]" {
		t.Errorf("unexpected tags field: %q", got[0].Fields[fieldTags])
	}
	if len(got[0].Fields[fieldVector]) != 8 {
		t.Errorf("vector field should be 8 bytes, got %d", len(got[0].Fields[fieldVector]))
	}
}

func TestUpsert_AppendModeUsesFreshKeys(t *testing.T) {
	var keys []string
	ms := &mockStore{
		hsetMultiFn: func(_ context.Context, items []db.HashSetItem) error {
			for _, it := range items {
				keys = append(keys, it.Key)
			}
			return nil
		},
	}
	r := testRepo(ms, domvec.ModeAppend, 0)

	rec := record(1, "Algorithms", []float32{1, 0})
	if err := r.Upsert(context.Background(), []domvec.Record{rec, rec}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if keys[0] == keys[1] {
		t.Errorf("append mode reused key %q", keys[0])
	}
	if !strings.HasPrefix(keys[0], "test:rec:") {
		t.Errorf("unexpected key %q", keys[0])
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	ms := &mockStore{
		hsetMultiFn: func(context.Context, []db.HashSetItem) error {
			t.Fatal("nothing should be written")
			return nil
		},
	}
	r := testRepo(ms, domvec.ModeUpsertByID, 3)

	err := r.Upsert(context.Background(), []domvec.Record{record(1, "A", []float32{1, 0})})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestUpsert_WriteError(t *testing.T) {
	ms := &mockStore{
		hsetMultiFn: func(context.Context, []db.HashSetItem) error {
			return &db.Error{Op: db.OpHSet, Err: context.DeadlineExceeded}
		},
	}
	r := testRepo(ms, domvec.ModeUpsertByID, 2)

	err := r.Upsert(context.Background(), []domvec.Record{record(1, "A", []float32{1, 0})})
	if !errors.Is(err, domain.ErrVectorStoreWrite) {
		t.Fatalf("expected ErrVectorStoreWrite, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cause should be preserved: %v", err)
	}
}

func TestUpsert_Empty(t *testing.T) {
	r := testRepo(&mockStore{}, domvec.ModeUpsertByID, 2)
	if err := r.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSimilaritySearch_RanksAndTruncates(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			if q.IndexName != "test:courses" || q.K != 2 || q.VectorField != fieldVector {
				t.Errorf("unexpected query: %+v", q)
			}
			return &db.SearchResult{Total: 3, Entries: []db.SearchEntry{
				{Key: "test:rec:3", Score: 0.5, Fields: map[string]string{fieldItemID: "3", fieldTitle: "C", fieldSeq: "9"}},
				{Key: "test:rec:1", Score: 0.9, Fields: map[string]string{fieldItemID: "1", fieldTitle: "A", fieldSeq: "1"}},
				{Key: "test:rec:2", Score: 0.5, Fields: map[string]string{
					fieldItemID: "2", fieldTitle: "B", fieldSeq: "2", fieldTags: `["x","y"]`,
				}},
			}}, nil
		},
	}
	r := testRepo(ms, domvec.ModeUpsertByID, 2)

	matches, err := r.SimilaritySearch(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Metadata.ID != 1 || matches[1].Metadata.ID != 2 {
		t.Errorf("unexpected order: %d, %d", matches[0].Metadata.ID, matches[1].Metadata.ID)
	}
	if len(matches[1].Metadata.Tags) != 2 || matches[1].Metadata.Tags[1] != "y" {
		t.Errorf("unexpected tags: %v", matches[1].Metadata.Tags)
	}
}

func TestSimilaritySearch_EmptyStore(t *testing.T) {
	r := testRepo(&mockStore{}, domvec.ModeUpsertByID, 2)
	matches, err := r.SimilaritySearch(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matches == nil || len(matches) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", matches)
	}
}

func TestSimilaritySearch_DimensionMismatch(t *testing.T) {
	r := testRepo(&mockStore{}, domvec.ModeUpsertByID, 3)
	_, err := r.SimilaritySearch(context.Background(), []float32{1, 0}, 5)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestSimilaritySearch_StoreError(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
			return nil, &db.Error{Op: db.OpSearch, Err: context.DeadlineExceeded}
		},
	}
	r := testRepo(ms, domvec.ModeUpsertByID, 2)
	_, err := r.SimilaritySearch(context.Background(), []float32{1, 0}, 5)
	if !errors.Is(err, domain.ErrVectorStoreRead) {
		t.Fatalf("expected ErrVectorStoreRead, got %v", err)
	}
}

func TestCount_MissingIndexIsEmpty(t *testing.T) {
	ms := &mockStore{
		searchCountFn: func(context.Context, string, string) (int, error) { return 0, db.ErrIndexNotFound },
	}
	r := testRepo(ms, domvec.ModeUpsertByID, 2)
	n, err := r.Count(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Count() = %d, %v; want 0, nil", n, err)
	}
}

func TestPing(t *testing.T) {
	r := testRepo(&mockStore{}, domvec.ModeUpsertByID, 3)
	if err := r.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r = testRepo(&mockStore{pingErr: errors.New("conn refused")}, domvec.ModeUpsertByID, 3)
	if err := r.Ping(context.Background()); !errors.Is(err, domain.ErrVectorStoreRead) {
		t.Fatalf("expected ErrVectorStoreRead, got %v", err)
	}
}
