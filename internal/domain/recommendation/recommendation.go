// Package recommendation recovers structured recommendations from free-text model output.
package recommendation

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/courserec/internal/domain/vector"
)

// Status reports which stage produced the recommendation list.
type Status string

// Parse outcome values.
const (
	StatusOK        Status = "ok"
	StatusRecovered Status = "recovered"
	StatusFallback  Status = "fallback"
	StatusEmpty     Status = "empty"
)

// Fallback field values used when the model output cannot be parsed.
const (
	FallbackReason = "Relevant to your query"
	UnknownSubject = "Unknown"
)

var requiredKeys = [...]string{"title", "url", "subject", "reason"}

// Recommendation is one recommended catalog item.
type Recommendation struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
}

// Result is the parsed recommendation list and the stage that produced it.
type Result struct {
	Status          Status
	Recommendations []Recommendation
}

// Empty is the result for a query without retrieved matches.
func Empty() Result {
	return Result{Status: StatusEmpty, Recommendations: []Recommendation{}}
}

// Parse extracts recommendations from raw model output. It tries a strict decode,
// then the outermost bracketed span, then falls back to one entry per match.
// An empty array is accepted only when there are no fallback matches.
func Parse(raw string, fallback []vector.Match) Result {
	allowEmpty := len(fallback) == 0
	trimmed := strings.TrimSpace(raw)

	if recs, ok := decode(trimmed, allowEmpty); ok {
		return Result{Status: StatusOK, Recommendations: recs}
	}
	start := strings.IndexByte(trimmed, '[')
	end := strings.LastIndexByte(trimmed, ']')
	if start >= 0 && end > start {
		if recs, ok := decode(trimmed[start:end+1], allowEmpty); ok {
			return Result{Status: StatusRecovered, Recommendations: recs}
		}
	}
	return Result{Status: StatusFallback, Recommendations: FromMatches(fallback)}
}

// FromMatches builds the deterministic fallback list from retrieved matches.
func FromMatches(matches []vector.Match) []Recommendation {
	out := make([]Recommendation, len(matches))
	for i, m := range matches {
		subject := m.Metadata.Subject
		if subject == "" {
			subject = UnknownSubject
		}
		out[i] = Recommendation{
			Title:   m.Metadata.Title,
			URL:     m.Metadata.URL,
			Subject: subject,
			Reason:  FallbackReason,
		}
	}
	return out
}

func decode(s string, allowEmpty bool) (recs []Recommendation, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			recs, ok = nil, false
		}
	}()

	if s == "" || s[0] != '[' {
		return nil, false
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, false
	}
	if len(items) == 0 && !allowEmpty {
		return nil, false
	}

	recs = make([]Recommendation, 0, len(items))
	for _, obj := range items {
		var vals [len(requiredKeys)]string
		for i, key := range requiredKeys {
			v, present := obj[key]
			if !present {
				return nil, false
			}
			vals[i] = text(v)
		}
		recs = append(recs, Recommendation{Title: vals[0], URL: vals[1], Subject: vals[2], Reason: vals[3]})
	}
	return recs, true
}

// text renders a JSON value as plain text: strings unquoted, null empty, anything else verbatim.
func text(raw json.RawMessage) string {
	v := bytes.TrimSpace(raw)
	switch {
	case len(v) == 0, bytes.Equal(v, []byte("null")):
		return ""
	case v[0] == '"':
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	return string(v)
}
