// Package pgvector stores course embeddings in PostgreSQL with the pgvector extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/kailas-cloud/courserec/internal/domain"
	domdoc "github.com/kailas-cloud/courserec/internal/domain/document"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
)

// pool is the consumer interface over *pgxpool.Pool (ISP).
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Ping(ctx context.Context) error
}

// Connect opens a pool with the vector type registered on every connection.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return p, nil
}

// Repo implements the vector writer and searcher over a pgvector table.
type Repo struct {
	pool  pool
	table string
	mode  domvec.Mode
	dim   int
	stmts statements
	newID func() string
}

// New creates a repository over table. EnsureSchema must run before use.
func New(p pool, table string, mode domvec.Mode) *Repo {
	return &Repo{pool: p, table: table, mode: mode, newID: uuid.NewString}
}

// EnsureSchema creates the extension, tables and index, and pins the dimension.
func (r *Repo) EnsureSchema(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("ensure schema: dimension must be positive, got %d", dim)
	}
	stmts := buildStatements(r.table, dim)

	for _, sql := range []string{stmts.createExtension, stmts.createMeta, stmts.createTable, stmts.createIndex} {
		if _, err := r.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("ensure schema %s: %w", r.table, err)
		}
	}
	if _, err := r.pool.Exec(ctx, stmts.insertDim, dim); err != nil {
		return fmt.Errorf("record dimension: %w", err)
	}
	var stored int
	if err := r.pool.QueryRow(ctx, stmts.selectDim).Scan(&stored); err != nil {
		return fmt.Errorf("read dimension: %w", err)
	}
	if stored != dim {
		return fmt.Errorf("%w: table %s holds %d-dim vectors, provider produces %d",
			domain.ErrVectorDimMismatch, r.table, stored, dim)
	}

	r.stmts = stmts
	r.dim = dim
	return nil
}

// Upsert writes records in one batch.
func (r *Repo) Upsert(ctx context.Context, records []domvec.Record) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		if err := domain.CheckDimension(records[i].Embedding, r.dim); err != nil {
			return fmt.Errorf("record %d (item %d): %w", i, records[i].Metadata.ID, err)
		}
	}

	sql := r.stmts.upsert
	if r.mode == domvec.ModeAppend {
		sql = r.stmts.insert
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(sql, r.rowArgs(rec)...)
	}

	br := r.pool.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("%w: %w", domain.ErrVectorStoreWrite, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStoreWrite, err)
	}
	return nil
}

// SimilaritySearch returns up to k records by ascending cosine distance, ties by insertion order.
func (r *Repo) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]domvec.Match, error) {
	if k <= 0 {
		return []domvec.Match{}, nil
	}
	if err := domain.CheckDimension(embedding, r.dim); err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	rows, err := r.pool.Query(ctx, r.stmts.search, pgv.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", domain.ErrVectorStoreRead, r.table, err)
	}
	defer rows.Close()

	matches := make([]domvec.Match, 0, k)
	for rows.Next() {
		var (
			m        domvec.Match
			distance float64
		)
		if err := rows.Scan(
			&m.Metadata.ID, &m.Metadata.Title, &m.Metadata.Subject, &m.Metadata.URL,
			&m.Metadata.Tags, &m.Content, &m.Seq, &distance,
		); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", domain.ErrVectorStoreRead, err)
		}
		m.Score = domvec.Similarity(distance)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", domain.ErrVectorStoreRead, err)
	}
	return domvec.Rank(matches, k), nil
}

// Count returns the number of stored records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, r.stmts.count).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: count %s: %w", domain.ErrVectorStoreRead, r.table, err)
	}
	return n, nil
}

// Ping checks database connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) rowArgs(rec domvec.Record) []any {
	return []any{
		r.recordKey(rec.Metadata),
		rec.Metadata.ID,
		rec.Metadata.Title,
		rec.Metadata.Subject,
		rec.Metadata.URL,
		nonNilTags(rec.Metadata.Tags),
		rec.Content,
		pgv.NewVector(rec.Embedding),
	}
}

func (r *Repo) recordKey(md domdoc.Metadata) string {
	if r.mode == domvec.ModeAppend {
		return r.newID()
	}
	return strconv.FormatInt(md.ID, 10)
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
