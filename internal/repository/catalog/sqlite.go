package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/courserec/internal/domain"
	domcat "github.com/kailas-cloud/courserec/internal/domain/catalog"
)

// SQLite reads the catalog table from a SQLite file. Tags are stored as a JSON array
// or a comma-separated string.
type SQLite struct {
	db    *sql.DB
	query string
}

// OpenSQLite opens the database at path read-only for the catalog source.
func OpenSQLite(path, table string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return NewSQLite(db, table), nil
}

// NewSQLite creates a catalog source over an open database.
func NewSQLite(db *sql.DB, table string) *SQLite {
	return &SQLite{
		db: db,
		query: fmt.Sprintf(
			`SELECT id, COALESCE(title, ''), COALESCE(subject, ''), COALESCE(url, ''), COALESCE(tags, '') FROM "%s" ORDER BY id`,
			strings.ReplaceAll(table, `"`, `""`)),
	}
}

// ListAll returns every catalog item ordered by id.
func (s *SQLite) ListAll(ctx context.Context) ([]domcat.Item, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var items []domcat.Item
	for rows.Next() {
		var (
			it   domcat.Item
			tags string
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.Subject, &it.URL, &tags); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", domain.ErrCatalogUnavailable, err)
		}
		it.Tags = parseTags(tags)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", domain.ErrCatalogUnavailable, err)
	}
	return items, nil
}

// Ping checks catalog connectivity.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			return tags
		}
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
