// Package prompt composes generation prompts from retrieved catalog context.
package prompt

import (
	"strings"

	"github.com/kailas-cloud/courserec/internal/domain/vector"
)

// SystemInstruction fixes the assistant role and the output contract.
const SystemInstruction = "You are a course recommendation assistant. " +
	"Only output valid JSON. Do not include any text outside JSON."

const outputContract = `Return as JSON array: [{ "title": "...", "url": "...", "subject": "...", ` +
	`"reason": "Why this course is a good match" }]`

// Prompt is a chat prompt split into system and user parts.
type Prompt struct {
	System string
	User   string
}

// String joins both parts for providers that take a single prompt.
func (p Prompt) String() string {
	return p.System + "\n\n" + p.User
}

// Compose builds the prompt for query over the retrieved matches.
func Compose(query string, matches []vector.Match) Prompt {
	var b strings.Builder
	b.WriteString("User query: ")
	b.WriteString(query)
	b.WriteString("\n\nRetrieved courses:\n")
	b.WriteString(Context(matches))
	b.WriteString("\n\n")
	b.WriteString(outputContract)
	return Prompt{System: SystemInstruction, User: b.String()}
}

// Context serializes matches as blank-line separated blocks.
func Context(matches []vector.Match) string {
	blocks := make([]string, len(matches))
	for i, m := range matches {
		blocks[i] = "Title: " + m.Metadata.Title +
			"\nSubject: " + m.Metadata.Subject +
			"\nUrl: " + m.Metadata.URL +
			"\nDescription: " + m.Content
	}
	return strings.Join(blocks, "\n\n")
}
