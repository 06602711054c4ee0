// Package document turns catalog items into embeddable text.
package document

import (
	"strings"

	"github.com/kailas-cloud/courserec/internal/domain/catalog"
)

// Metadata is the catalog data carried alongside each embedded document.
type Metadata struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Subject string   `json:"subject"`
	URL     string   `json:"url"`
	Tags    []string `json:"tags"`
}

// Document is the embeddable form of a catalog item.
type Document struct {
	Content  string
	Metadata Metadata
}

// Prepare renders item into its embeddable form.
// Content layout: "{title}\nSubject: {subject}\nTags: {tag1, tag2}".
func Prepare(item catalog.Item) Document {
	var tags []string
	if len(item.Tags) > 0 {
		tags = make([]string, len(item.Tags))
		copy(tags, item.Tags)
	}

	var b strings.Builder
	b.WriteString(item.Title)
	b.WriteString("\nSubject: ")
	b.WriteString(item.Subject)
	b.WriteString("\nTags: ")
	b.WriteString(strings.Join(tags, ", "))

	return Document{
		Content: b.String(),
		Metadata: Metadata{
			ID:      item.ID,
			Title:   item.Title,
			Subject: item.Subject,
			URL:     item.URL,
			Tags:    tags,
		},
	}
}

// PrepareAll renders items in order.
func PrepareAll(items []catalog.Item) []Document {
	docs := make([]Document, len(items))
	for i, it := range items {
		docs[i] = Prepare(it)
	}
	return docs
}

// Contents returns the content of each document in order.
func Contents(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content
	}
	return out
}
