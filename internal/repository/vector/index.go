package vector

import "github.com/kailas-cloud/courserec/internal/db"

// HNSWConfig holds HNSW index parameters for the vector field.
type HNSWConfig struct {
	M              int
	EFConstruction int
}

func (r *Repo) indexName() string    { return r.prefix + "courses" }
func (r *Repo) recordPrefix() string { return r.prefix + "rec:" }
func (r *Repo) seqKey() string       { return r.prefix + "meta:seq" }
func (r *Repo) dimKey() string       { return r.prefix + "meta:dim" }

// buildIndex describes the FT index over stored course records.
func (r *Repo) buildIndex(dim int) (*db.IndexDefinition, error) {
	return db.NewIndex(r.indexName()).
		Prefix(r.recordPrefix()).
		Numeric(fieldItemID, false).
		Numeric(fieldSeq, true).
		Tag(fieldSubject, "|").
		Vector(fieldVector, dim, db.DistanceCosine, db.HNSW{M: r.hnsw.M, EFConstruction: r.hnsw.EFConstruction}).
		Build()
}
