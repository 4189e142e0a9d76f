package pdfbook

import (
	"context"
	"fmt"

	"github.com/alnah/go-pdfbook/internal/pipeline"
)

// webPageConverter turns a fetched HTML page into a PDF.
type webPageConverter interface {
	ConvertHTML(ctx context.Context, html, pageURL string) (pdf []byte, title string, err error)
}

// Compile-time interface check.
var _ webPageConverter = (*htmlWebConverter)(nil)

// htmlWebConverter reduces a page to its readable content, re-renders it
// through Markdown so site chrome and scripts are gone, and prints it.
type htmlWebConverter struct {
	extractor *pipeline.WebPageExtractor
	templates *pipeline.PageTemplates
	printer   htmlPrinter
	page      *PageSettings
}

func newHTMLWebConverter(templates *pipeline.PageTemplates, printer htmlPrinter, page *PageSettings) *htmlWebConverter {
	return &htmlWebConverter{
		extractor: pipeline.NewWebPageExtractor(),
		templates: templates,
		printer:   printer,
		page:      page,
	}
}

// ConvertHTML returns the printed page and its title.
func (c *htmlWebConverter) ConvertHTML(ctx context.Context, html, pageURL string) ([]byte, string, error) {
	page, err := c.extractor.Extract(ctx, html, pageURL)
	if err != nil {
		return nil, "", fmt.Errorf("extracting content: %w", err)
	}

	doc, err := c.templates.RenderWebPage(ctx, pipeline.WebPageData{
		Title:     page.Title,
		SourceURL: pageURL,
		Body:      page.Body,
	})
	if err != nil {
		return nil, "", err
	}

	pdf, err := c.printer.PrintHTML(ctx, doc, c.page)
	if err != nil {
		return nil, "", err
	}
	return pdf, page.Title, nil
}
