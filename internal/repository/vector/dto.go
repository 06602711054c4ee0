package vector

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/goccy/go-json"

	domdoc "github.com/kailas-cloud/courserec/internal/domain/document"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
)

// Hash field names of a stored record.
const (
	fieldVector  = "__vector"
	fieldContent = "__content"
	fieldItemID  = "item_id"
	fieldTitle   = "title"
	fieldSubject = "subject"
	fieldURL     = "url"
	fieldTags    = "tags"
	fieldSeq     = "seq"
)

var returnFields = []string{fieldContent, fieldItemID, fieldTitle, fieldSubject, fieldURL, fieldTags, fieldSeq}

// buildHashFields flattens a record into HSET fields.
func buildHashFields(rec domvec.Record, seq int64) (map[string]string, error) {
	tags := rec.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		fieldVector:  vectorToBytes(rec.Embedding),
		fieldContent: rec.Content,
		fieldItemID:  strconv.FormatInt(rec.Metadata.ID, 10),
		fieldTitle:   rec.Metadata.Title,
		fieldSubject: rec.Metadata.Subject,
		fieldURL:     rec.Metadata.URL,
		fieldTags:    string(tagsJSON),
		fieldSeq:     strconv.FormatInt(seq, 10),
	}, nil
}

// parseMatch converts returned hash fields into a match. Malformed numeric fields read as zero.
func parseMatch(fields map[string]string, score float64) domvec.Match {
	id, _ := strconv.ParseInt(fields[fieldItemID], 10, 64)
	seq, _ := strconv.ParseInt(fields[fieldSeq], 10, 64)

	var tags []string
	if raw := fields[fieldTags]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &tags)
	}

	return domvec.Match{
		Content: fields[fieldContent],
		Metadata: domdoc.Metadata{
			ID:      id,
			Title:   fields[fieldTitle],
			Subject: fields[fieldSubject],
			URL:     fields[fieldURL],
			Tags:    tags,
		},
		Score: score,
		Seq:   seq,
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
