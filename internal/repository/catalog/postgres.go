// Package catalog reads course records from the external catalog database.
package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/courserec/internal/domain"
	domcat "github.com/kailas-cloud/courserec/internal/domain/catalog"
)

// querier is the consumer interface over *pgxpool.Pool (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// Postgres reads the catalog table through a pgx pool.
type Postgres struct {
	pool  querier
	query string
}

// NewPostgres creates a catalog source over table.
func NewPostgres(p querier, table string) *Postgres {
	return &Postgres{
		pool: p,
		query: fmt.Sprintf(
			"SELECT id, COALESCE(title, ''), COALESCE(subject, ''), COALESCE(url, ''), COALESCE(tags, '{}') FROM %s ORDER BY id",
			pgx.Identifier{table}.Sanitize()),
	}
}

// Connect opens a pgx pool for the catalog database.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create catalog pool: %w", err)
	}
	return p, nil
}

// ListAll returns every catalog item ordered by id.
func (s *Postgres) ListAll(ctx context.Context) ([]domcat.Item, error) {
	rows, err := s.pool.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domcat.Item, error) {
		var it domcat.Item
		err := row.Scan(&it.ID, &it.Title, &it.Subject, &it.URL, &it.Tags)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan: %w", domain.ErrCatalogUnavailable, err)
	}
	return items, nil
}

// Ping checks catalog connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
