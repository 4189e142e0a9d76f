package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/alnah/go-pdfbook/internal/assets"
)

// Sentinel errors for page template rendering.
var (
	// ErrTemplateParse indicates a page template is not valid html/template syntax.
	ErrTemplateParse = errors.New("template parse failed")

	// ErrTemplateRender indicates executing a page template failed.
	ErrTemplateRender = errors.New("template render failed")
)

// CoverData feeds the cover template. ImageURL is trusted as is, so local
// file:// URLs survive html/template's URL filtering.
type CoverData struct {
	Title    string
	ImageURL template.URL
}

// TOCEntryData is one table of contents line. Section lines carry no page.
// Target, when set, makes the line a link.
type TOCEntryData struct {
	Heading string
	Page    int
	Section bool
	Target  string
}

// TOCData feeds the table of contents template.
type TOCData struct {
	Title   string
	Entries []TOCEntryData
}

// ReferenceData is one line of the references section.
type ReferenceData struct {
	Title  string
	URL    string
	Reason string
}

// ReferencesData feeds the references template.
type ReferencesData struct {
	Title string
	Items []ReferenceData
}

// WebPageData feeds the web page template. Body must already be sanitized.
type WebPageData struct {
	Title     string
	SourceURL string
	Body      template.HTML
}

// PageTemplates renders the generated book pages with the book stylesheet.
type PageTemplates struct {
	cover      *template.Template
	toc        *template.Template
	references *template.Template
	webPage    *template.Template
	css        string
}

// NewPageTemplates parses every template of set. css is injected into each
// rendered page.
func NewPageTemplates(set *assets.TemplateSet, css string) (*PageTemplates, error) {
	if set == nil {
		return nil, fmt.Errorf("%w: nil template set", ErrTemplateParse)
	}

	pt := &PageTemplates{css: css}
	targets := []struct {
		name string
		src  string
		dst  **template.Template
	}{
		{assets.TemplateCover, set.Cover, &pt.cover},
		{assets.TemplateTOC, set.TOC, &pt.toc},
		{assets.TemplateReferences, set.References, &pt.references},
		{assets.TemplateWebPage, set.WebPage, &pt.webPage},
	}

	for _, target := range targets {
		tmpl, err := template.New(target.name).Parse(target.src)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplateParse, target.name, err)
		}
		*target.dst = tmpl
	}
	return pt, nil
}

// RenderCover renders the cover page around an image URL.
func (pt *PageTemplates) RenderCover(ctx context.Context, data CoverData) (string, error) {
	return pt.render(ctx, pt.cover, data)
}

// RenderTOC renders the table of contents.
func (pt *PageTemplates) RenderTOC(ctx context.Context, data TOCData) (string, error) {
	return pt.render(ctx, pt.toc, data)
}

// RenderReferences renders the references section.
func (pt *PageTemplates) RenderReferences(ctx context.Context, data ReferencesData) (string, error) {
	return pt.render(ctx, pt.references, data)
}

// RenderWebPage renders converted web content as a printable page.
func (pt *PageTemplates) RenderWebPage(ctx context.Context, data WebPageData) (string, error) {
	return pt.render(ctx, pt.webPage, data)
}

func (pt *PageTemplates) render(ctx context.Context, tmpl *template.Template, data any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplateRender, tmpl.Name(), err)
	}
	return injectStyle(buf.String(), pt.css)
}
