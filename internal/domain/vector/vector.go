// Package vector holds the records persisted by vector stores and the matches they return.
package vector

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/courserec/internal/domain/document"
)

// Record is one embedded document ready for storage.
type Record struct {
	Embedding []float32
	Content   string
	Metadata  document.Metadata
}

// Match is a stored record returned by a similarity search.
// Score is higher for more relevant matches. Seq is the store's insertion order.
type Match struct {
	Content  string
	Metadata document.Metadata
	Score    float64
	Seq      int64
}

// Mode controls how re-ingestion treats records already in the store.
type Mode string

const (
	// ModeAppend stores every record under a fresh key.
	ModeAppend Mode = "append"
	// ModeUpsertByID keys records by catalog item id so re-ingestion overwrites.
	ModeUpsertByID Mode = "upsert_by_id"
)

// ParseMode validates a configured ingestion mode. Empty selects ModeUpsertByID.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeUpsertByID, nil
	case ModeAppend, ModeUpsertByID:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown ingestion mode %q", s)
	}
}

// NewRecord builds a record from a document and its embedding.
func NewRecord(doc document.Document, embedding []float32) Record {
	return Record{Embedding: embedding, Content: doc.Content, Metadata: doc.Metadata}
}

// Rank orders matches by descending score, ties by ascending Seq, and truncates to k.
// k <= 0 keeps all matches.
func Rank(matches []Match, k int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Seq < matches[j].Seq
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Similarity converts a cosine distance in [0, 2] to a cosine similarity in [-1, 1].
func Similarity(distance float64) float64 {
	return 1 - distance
}
