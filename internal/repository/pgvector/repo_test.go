package pgvector

import (
	"context"
	"errors"
	"strings"
	"testing"

	pgv "github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/courserec/internal/domain"
	domdoc "github.com/kailas-cloud/courserec/internal/domain/document"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
)

func TestBuildStatements_QuotesIdentifiers(t *testing.T) {
	s := buildStatements(`courses"; DROP TABLE x; --`, 4)
	if !strings.Contains(s.createTable, `"courses""; DROP TABLE x; --"`) {
		t.Errorf("table name not sanitized: %s", s.createTable)
	}
}

func TestBuildStatements_Shape(t *testing.T) {
	s := buildStatements("course_vectors", 1536)

	if !strings.Contains(s.createTable, "embedding vector(1536) NOT NULL") {
		t.Errorf("unexpected create table: %s", s.createTable)
	}
	if !strings.Contains(s.search, "ORDER BY embedding <=> $1, seq") {
		t.Errorf("search must order by distance then insertion: %s", s.search)
	}
	if !strings.Contains(s.upsert, "ON CONFLICT (record_key) DO UPDATE") {
		t.Errorf("upsert must overwrite by key: %s", s.upsert)
	}
	if strings.Contains(s.insert, "ON CONFLICT") {
		t.Errorf("append insert must not overwrite: %s", s.insert)
	}
	if !strings.Contains(s.createIndex, "vector_cosine_ops") {
		t.Errorf("index must use cosine ops: %s", s.createIndex)
	}
}

func TestRowArgs_UpsertKeyIsItemID(t *testing.T) {
	r := New(nil, "course_vectors", domvec.ModeUpsertByID)
	args := r.rowArgs(domvec.Record{
		Embedding: []float32{0.5, 0.25},
		Content:   "c",
		Metadata:  domdoc.Metadata{ID: 42, Title: "Algorithms"},
	})

	if args[0] != "42" {
		t.Errorf("key = %v, want 42", args[0])
	}
	if tags, ok := args[5].([]string); !ok || tags == nil {
		t.Errorf("tags should be a non-nil slice, got %#v", args[5])
	}
	vec, ok := args[7].(pgv.Vector)
	if !ok || len(vec.Slice()) != 2 {
		t.Errorf("unexpected vector arg: %#v", args[7])
	}
}

func TestRowArgs_AppendKeyIsFresh(t *testing.T) {
	r := New(nil, "course_vectors", domvec.ModeAppend)
	rec := domvec.Record{Embedding: []float32{1}, Metadata: domdoc.Metadata{ID: 1}}
	if a, b := r.rowArgs(rec)[0], r.rowArgs(rec)[0]; a == b {
		t.Errorf("append mode reused key %v", a)
	}
}

func TestUpsert_DimensionCheckedBeforeWrite(t *testing.T) {
	r := New(nil, "course_vectors", domvec.ModeUpsertByID)
	r.dim = 3

	err := r.Upsert(context.Background(), []domvec.Record{{Embedding: []float32{1, 2}}})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestSimilaritySearch_NonPositiveK(t *testing.T) {
	r := New(nil, "course_vectors", domvec.ModeUpsertByID)
	matches, err := r.SimilaritySearch(context.Background(), []float32{1}, 0)
	if err != nil || len(matches) != 0 {
		t.Errorf("SimilaritySearch(k=0) = %v, %v", matches, err)
	}
}
