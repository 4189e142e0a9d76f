package pipeline

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

// Sentinel errors for web page extraction.
var (
	// ErrEmptyPage indicates no readable content survived extraction.
	ErrEmptyPage = errors.New("page has no readable content")

	// ErrMarkdownConversion indicates HTML to Markdown conversion failed.
	ErrMarkdownConversion = errors.New("markdown conversion failed")
)

// chromeElements are stripped before sanitizing; they carry site navigation
// rather than page content.
var chromeElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"form":     true,
	"iframe":   true,
	"svg":      true,
}

// WebPage is the readable content of a fetched HTML page. Body is the
// Markdown re-rendered as HTML, safe to place in a template unescaped.
type WebPage struct {
	Title    string
	Markdown string
	Body     template.HTML
}

// WebPageExtractor reduces an HTML page to its readable content. The page
// goes through Markdown and back so site chrome, scripts and inline styles
// cannot survive.
type WebPageExtractor struct {
	policy    *bluemonday.Policy
	converter *htmltomarkdown.Converter
	markdown  goldmark.Markdown
}

// NewWebPageExtractor creates an extractor with a UGC sanitizing policy and
// CommonMark + table Markdown output.
func NewWebPageExtractor() *WebPageExtractor {
	return &WebPageExtractor{
		policy: bluemonday.UGCPolicy(),
		converter: htmltomarkdown.NewConverter(
			htmltomarkdown.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		markdown: newMarkdown(),
	}
}

// Extract picks the main content of htmlContent, drops site chrome, resolves
// relative links against pageURL, sanitizes it and converts it to Markdown
// and back to HTML. The title comes from <title>, then the first <h1>,
// then pageURL.
func (e *WebPageExtractor) Extract(ctx context.Context, htmlContent, pageURL string) (*WebPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	baseURL, err := parseBaseURL(pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing page: %v", ErrMarkdownConversion, err)
	}

	title := pageTitle(doc)
	if title == "" {
		title = pageURL
	}

	content := mainContent(doc)
	if content == nil {
		return nil, ErrEmptyPage
	}
	stripChrome(content)
	resolveLinks(content, baseURL)

	var buf strings.Builder
	for c := content.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, fmt.Errorf("%w: rendering content: %v", ErrMarkdownConversion, err)
		}
	}

	cleaned := e.policy.Sanitize(buf.String())
	markdown, err := e.converter.ConvertString(cleaned, htmltomarkdown.WithDomain(pageURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarkdownConversion, err)
	}

	markdown = normalizeMarkdown(markdown)
	if markdown == "" {
		return nil, ErrEmptyPage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := renderMarkdown(e.markdown, markdown)
	if err != nil {
		return nil, err
	}
	return &WebPage{Title: title, Markdown: markdown, Body: body}, nil
}

// pageTitle returns the document <title>, falling back to the first <h1>.
func pageTitle(doc *html.Node) string {
	if n := findElement(doc, "title"); n != nil {
		if t := collapseSpace(textContent(n)); t != "" {
			return t
		}
	}
	if n := findElement(doc, "h1"); n != nil {
		return collapseSpace(textContent(n))
	}
	return ""
}

// mainContent prefers <article>, then <main>, then <body>.
func mainContent(doc *html.Node) *html.Node {
	for _, tag := range []string{"article", "main", "body"} {
		if n := findElement(doc, tag); n != nil {
			return n
		}
	}
	return nil
}

// stripChrome removes chromeElements from the subtree rooted at n.
func stripChrome(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && chromeElements[c.Data] {
			n.RemoveChild(c)
		} else if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			stripChrome(c)
		}
		c = next
	}
}

// findElement returns the first element named tag in document order.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
