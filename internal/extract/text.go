package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TruncationMarker is appended to content cut at the length cap.
const TruncationMarker = "\n\n... [Content truncated for length]"

// blockTags end the current line of text.
var blockTags = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Blockquote: true, atom.Br: true,
	atom.Caption: true, atom.Dd: true, atom.Details: true, atom.Div: true,
	atom.Dl: true, atom.Dt: true, atom.Figcaption: true, atom.Figure: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true,
	atom.H6: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Summary: true,
	atom.Table: true, atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

// blockText renders sel as plain text: one paragraph per block-level
// element, whitespace collapsed within each, blank lines between them.
func blockText(sel *goquery.Selection) string {
	w := &textWriter{}
	for _, n := range sel.Nodes {
		w.walk(n)
		w.flush()
	}
	return strings.Join(w.blocks, "\n\n")
}

type textWriter struct {
	line   strings.Builder
	prefix string
	blocks []string
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.line.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
			return
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.DataAtom]
	if block {
		w.flush()
		if n.DataAtom == atom.Li {
			w.prefix = "- "
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.flush()
		// An item that wrote nothing must not mark the next block.
		if n.DataAtom == atom.Li {
			w.prefix = ""
		}
	}
}

func (w *textWriter) flush() {
	text := strings.Join(strings.Fields(w.line.String()), " ")
	w.line.Reset()
	if text != "" {
		w.blocks = append(w.blocks, w.prefix+text)
		w.prefix = ""
	}
}

// Truncate bounds text to maxChars characters. Longer text is cut at the
// last whitespace that leaves room for TruncationMarker, and the marker is
// appended. Text within the cap is returned unchanged.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	budget := maxChars - utf8.RuneCountInString(TruncationMarker)
	if budget <= 0 {
		return string([]rune(text)[:maxChars])
	}

	runes := []rune(text)
	cut := budget
	// Prefer ending on a word boundary; fall back to a hard cut when the
	// budget holds a single unbroken word.
	for i := budget; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	head := strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
	if head == "" {
		head = string(runes[:budget])
	}
	return head + TruncationMarker
}
