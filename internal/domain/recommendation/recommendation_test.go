package recommendation

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/courserec/internal/domain/document"
	"github.com/kailas-cloud/courserec/internal/domain/vector"
)

func matches() []vector.Match {
	return []vector.Match{
		{Metadata: document.Metadata{ID: 1, Title: "Intro to Algorithms", Subject: "CS", URL: "https://c/1"}},
		{Metadata: document.Metadata{ID: 2, Title: "Pottery", URL: "https://c/2"}},
	}
}

const validArray = `[{"title":"Intro to Algorithms","url":"https://c/1","subject":"CS","reason":"covers graphs"}]`

func TestParse_StrictJSON(t *testing.T) {
	res := Parse("  "+validArray+"\n", matches())
	if res.Status != StatusOK {
		t.Fatalf("status = %s, want ok", res.Status)
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0].Reason != "covers graphs" {
		t.Errorf("unexpected recommendations: %+v", res.Recommendations)
	}
}

func TestParse_RecoversWrappedArray(t *testing.T) {
	tests := []string{
		"Sure! Here you go:\n" + validArray + "\nHope that helps.",
		"```json\n" + validArray + "\n```",
	}
	for _, raw := range tests {
		res := Parse(raw, matches())
		if res.Status != StatusRecovered {
			t.Errorf("status = %s, want recovered for %q", res.Status, raw)
			continue
		}
		if res.Recommendations[0].Title != "Intro to Algorithms" {
			t.Errorf("unexpected title: %q", res.Recommendations[0].Title)
		}
	}
}

func TestParse_Fallback(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"no json here",
		"[",
		"][",
		`{"title":"x"}`,
		`[{"title":"x","url":"u","subject":"s"}]`,
		`["just", "strings"]`,
		`[]`,
		`[{"title":"a","url":"b","subject":"c","reason":"d"}] [1]`,
		strings.Repeat("[", 10000),
	}
	for _, raw := range inputs {
		res := Parse(raw, matches())
		if res.Status != StatusFallback {
			t.Errorf("status = %s, want fallback for %.40q", res.Status, raw)
			continue
		}
		if len(res.Recommendations) != len(matches()) {
			t.Errorf("fallback length = %d, want %d", len(res.Recommendations), len(matches()))
		}
	}
}

func TestParse_FallbackFields(t *testing.T) {
	res := Parse("garbage", matches())
	first, second := res.Recommendations[0], res.Recommendations[1]
	if first.Title != "Intro to Algorithms" || first.URL != "https://c/1" || first.Subject != "CS" {
		t.Errorf("unexpected first fallback: %+v", first)
	}
	if second.Subject != UnknownSubject {
		t.Errorf("expected subject %q, got %q", UnknownSubject, second.Subject)
	}
	if first.Reason != FallbackReason || second.Reason != FallbackReason {
		t.Errorf("unexpected fallback reasons: %q %q", first.Reason, second.Reason)
	}
}

func TestParse_NonStringValuesRendered(t *testing.T) {
	raw := `[{"title":42,"url":null,"subject":true,"reason":["a","b"]}]`
	res := Parse(raw, matches())
	if res.Status != StatusOK {
		t.Fatalf("status = %s, want ok", res.Status)
	}
	got := res.Recommendations[0]
	if got.Title != "42" || got.URL != "" || got.Subject != "true" || got.Reason != `["a","b"]` {
		t.Errorf("unexpected rendering: %+v", got)
	}
}

func TestParse_EmptyArrayWithoutMatches(t *testing.T) {
	res := Parse("[]", nil)
	if res.Status != StatusOK || len(res.Recommendations) != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	res = Parse("nonsense", nil)
	if res.Status != StatusFallback || len(res.Recommendations) != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestEmpty(t *testing.T) {
	res := Empty()
	if res.Status != StatusEmpty || res.Recommendations == nil || len(res.Recommendations) != 0 {
		t.Errorf("unexpected empty result: %+v", res)
	}
}
