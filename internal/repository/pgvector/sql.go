package pgvector

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

type statements struct {
	createExtension string
	createTable     string
	createMeta      string
	createIndex     string
	insertDim       string
	selectDim       string
	upsert          string
	insert          string
	search          string
	count           string
}

func buildStatements(table string, dim int) statements {
	t := pgx.Identifier{table}.Sanitize()
	meta := pgx.Identifier{table + "_meta"}.Sanitize()
	idx := pgx.Identifier{table + "_embedding_idx"}.Sanitize()

	const cols = "record_key, item_id, title, subject, url, tags, content, embedding"
	return statements{
		createExtension: "CREATE EXTENSION IF NOT EXISTS vector",
		createTable: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	record_key text PRIMARY KEY,
	seq bigserial NOT NULL,
	item_id bigint NOT NULL,
	title text NOT NULL,
	subject text NOT NULL,
	url text NOT NULL,
	tags text[] NOT NULL DEFAULT '{}',
	content text NOT NULL,
	embedding vector(%d) NOT NULL
)`, t, dim),
		createMeta: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	singleton boolean PRIMARY KEY DEFAULT true CHECK (singleton),
	dim integer NOT NULL
)`, meta),
		createIndex: fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)", idx, t),
		insertDim: fmt.Sprintf("INSERT INTO %s (dim) VALUES ($1) ON CONFLICT (singleton) DO NOTHING", meta),
		selectDim: fmt.Sprintf("SELECT dim FROM %s", meta),
		upsert: fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (record_key) DO UPDATE SET
	seq = nextval(pg_get_serial_sequence('%s', 'seq')),
	item_id = EXCLUDED.item_id,
	title = EXCLUDED.title,
	subject = EXCLUDED.subject,
	url = EXCLUDED.url,
	tags = EXCLUDED.tags,
	content = EXCLUDED.content,
	embedding = EXCLUDED.embedding`, t, cols, strings.ReplaceAll(t, "'", "''")),
		insert: fmt.Sprintf("INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)", t, cols),
		search: fmt.Sprintf(`SELECT item_id, title, subject, url, tags, content, seq, embedding <=> $1 AS distance
FROM %s
ORDER BY embedding <=> $1, seq
LIMIT $2`, t),
		count: fmt.Sprintf("SELECT count(*) FROM %s", t),
	}
}
