// Package guideline defines the document returned to callers and its
// plain-text rendering.
package guideline

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"
)

// Separator frames a document's content in the rendered form.
var Separator = strings.Repeat("=", 80)

const endMarker = "END OF GUIDELINE"

// ErrMalformed is returned by Parse for text not produced by Render.
var ErrMalformed = errors.New("guideline: malformed document")

// Document is one extracted guideline page.
type Document struct {
	Title      string `json:"title"`
	SourceName string `json:"source_name"`
	URL        string `json:"url"`
	Content    string `json:"content"`
}

var documentTmpl = template.Must(template.New("document").Parse(
	"GUIDELINE: {{.Title}}\n" +
		"SOURCE: {{.SourceName}}\n" +
		"URL: {{.URL}}\n" +
		"{{.Sep}}\n" +
		"{{.Content}}\n" +
		"{{.Sep}}\n" +
		endMarker))

// Write renders d to w. Header fields are collapsed onto a single line.
func Write(w io.Writer, d Document) error {
	data := struct {
		Document
		Sep string
	}{
		Document: Document{
			Title:      singleLine(d.Title),
			SourceName: singleLine(d.SourceName),
			URL:        singleLine(d.URL),
			Content:    d.Content,
		},
		Sep: Separator,
	}
	if err := documentTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render guideline: %w", err)
	}
	return nil
}

// Render returns the plain-text form of d.
func Render(d Document) string {
	var b strings.Builder
	// Writes to a strings.Builder cannot fail.
	_ = Write(&b, d)
	return b.String()
}

// RenderAll renders docs separated by a blank line.
func RenderAll(docs []Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = Render(d)
	}
	return strings.Join(parts, "\n\n")
}

// Parse recovers a Document from the output of Render.
func Parse(text string) (Document, error) {
	text = strings.TrimRight(text, "\r\n")

	var d Document
	rest := text
	for _, field := range []struct {
		prefix string
		dst    *string
	}{
		{"GUIDELINE: ", &d.Title},
		{"SOURCE: ", &d.SourceName},
		{"URL: ", &d.URL},
	} {
		line, tail, ok := strings.Cut(rest, "\n")
		if !ok || !strings.HasPrefix(line, field.prefix) {
			return Document{}, fmt.Errorf("%w: missing %q line", ErrMalformed, strings.TrimSpace(field.prefix))
		}
		*field.dst = strings.TrimPrefix(line, field.prefix)
		rest = tail
	}

	body, ok := strings.CutPrefix(rest, Separator+"\n")
	if !ok {
		return Document{}, fmt.Errorf("%w: missing opening separator", ErrMalformed)
	}
	content, ok := strings.CutSuffix(body, "\n"+Separator+"\n"+endMarker)
	if !ok {
		return Document{}, fmt.Errorf("%w: missing closing separator", ErrMalformed)
	}
	d.Content = content
	return d, nil
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
