package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrHTMLConversion indicates rendering Markdown back to HTML failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

var (
	// Links whose text vanished during sanitizing, e.g. icon-only anchors.
	// Images (![](...)) are kept.
	emptyLink = regexp.MustCompile(`(^|[^!])\[\]\([^)]*\)`)

	blankRun = regexp.MustCompile(`\n{3,}`)
)

// newMarkdown returns the renderer for extracted page content: GitHub
// flavored, footnotes, heading IDs and inline-styled code highlighting.
// Raw HTML is never rendered.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(chromahtml.WithClasses(false)),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)
}

// renderMarkdown converts normalized Markdown to an HTML fragment.
func renderMarkdown(md goldmark.Markdown, content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	return template.HTML(buf.String()), nil // #nosec G203 -- raw HTML is not rendered by goldmark
}

// normalizeMarkdown unifies line endings, drops empty links, trims trailing
// blanks that would become hard breaks and keeps at most one blank line in
// a row.
func normalizeMarkdown(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = emptyLink.ReplaceAllString(content, "$1")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = blankRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")

	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	return content + "\n"
}
