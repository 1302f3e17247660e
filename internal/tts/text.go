package tts

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// inlineParser only knows paragraphs, so list markers, headings and the like
// in a drill sentence ("1999. Fue un año...") are read literally.
var inlineParser = parser.NewParser(
	parser.WithBlockParsers(util.Prioritized(parser.NewParagraphParser(), 1000)),
	parser.WithInlineParsers(parser.DefaultInlineParsers()...),
)

// CleanText strips inline markdown from s and collapses whitespace.
// The result is what gets handed to an engine.
func CleanText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	reader := text.NewReader([]byte(s))
	doc := inlineParser.Parse(reader)

	var buf strings.Builder
	walkNode(doc, reader.Source(), &buf)

	return strings.Join(strings.Fields(buf.String()), " ")
}

// walkNode recursively walks the AST and extracts speakable text.
func walkNode(node ast.Node, source []byte, buf *strings.Builder) {
	switch n := node.(type) {
	case *ast.RawHTML:
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteByte(' ')
		}
		return

	case *ast.String:
		buf.Write(n.Value)
		return

	case *ast.AutoLink:
		buf.Write(n.Label(source))
		return

	case *ast.Paragraph:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walkNode(c, source, buf)
		}
		buf.WriteByte(' ')
		return
	}

	// Emphasis, links, images and code spans: keep the inner text only
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walkNode(c, source, buf)
	}
}
