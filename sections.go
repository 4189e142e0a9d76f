package pdfbook

import (
	"context"
	"fmt"
	"html/template"

	"github.com/alnah/go-pdfbook/internal/assets"
	"github.com/alnah/go-pdfbook/internal/pipeline"
)

// sectionRenderer produces the pages the book adds around fetched documents.
type sectionRenderer interface {
	RenderCover(ctx context.Context, title, imagePath string) ([]byte, error)
	RenderTOC(ctx context.Context, title string, entries []TocEntry) ([]byte, error)
	RenderReferences(ctx context.Context, title string, refs []Reference) ([]byte, error)
}

// Compile-time interface check.
var _ sectionRenderer = (*htmlSections)(nil)

// htmlSections renders sections from HTML templates and prints them.
type htmlSections struct {
	templates *pipeline.PageTemplates
	printer   htmlPrinter
	page      *PageSettings
}

func newHTMLSections(templates *pipeline.PageTemplates, printer htmlPrinter, page *PageSettings) *htmlSections {
	return &htmlSections{templates: templates, printer: printer, page: page}
}

// RenderCover prints the cover image centered on one page.
func (s *htmlSections) RenderCover(ctx context.Context, title, imagePath string) ([]byte, error) {
	imageURL, err := pipeline.FileURL(imagePath)
	if err != nil {
		return nil, fmt.Errorf("resolving cover image: %w", err)
	}

	html, err := s.templates.RenderCover(ctx, pipeline.CoverData{
		Title:    title,
		ImageURL: template.URL(imageURL), // #nosec G203 -- built by FileURL from a local path
	})
	if err != nil {
		return nil, err
	}
	return s.printer.PrintHTML(ctx, html, s.page)
}

// RenderTOC prints the table of contents. Section entries have no page.
func (s *htmlSections) RenderTOC(ctx context.Context, title string, entries []TocEntry) ([]byte, error) {
	data := pipeline.TOCData{Title: title, Entries: make([]pipeline.TOCEntryData, len(entries))}
	for i, e := range entries {
		data.Entries[i] = pipeline.TOCEntryData{Heading: e.Heading, Page: e.StartPage, Section: e.Section}
		if !e.Section {
			data.Entries[i].Target = tocTarget(e.PageIndex)
		}
	}

	html, err := s.templates.RenderTOC(ctx, data)
	if err != nil {
		return nil, err
	}
	return s.printer.PrintHTML(ctx, html, s.page)
}

// RenderReferences prints the list of links that contribute no pages.
func (s *htmlSections) RenderReferences(ctx context.Context, title string, refs []Reference) ([]byte, error) {
	data := pipeline.ReferencesData{Title: title, Items: make([]pipeline.ReferenceData, len(refs))}
	for i, r := range refs {
		data.Items[i] = pipeline.ReferenceData{Title: r.Title, URL: r.RawURL, Reason: describeReason(r.Reason)}
	}

	html, err := s.templates.RenderReferences(ctx, data)
	if err != nil {
		return nil, err
	}
	return s.printer.PrintHTML(ctx, html, s.page)
}

// describeReason turns a failure reason into reader-facing text.
func describeReason(r FailureReason) string {
	switch r {
	case ReasonAuthRequired:
		return "not publicly accessible"
	case ReasonTimeout:
		return "timed out"
	case ReasonInvalidPDF:
		return "not a valid PDF"
	case ReasonUnsupportedContent:
		return "content could not be converted"
	case ReasonInvalidURL:
		return "not a web link"
	case ReasonFolderUnavailable:
		return "folder could not be listed"
	case ReasonFolderDepthExceeded:
		return "folder nested too deeply"
	case ReasonNetworkError:
		return "network error"
	}
	if r.IsHTTPError() {
		return "server answered " + string(r[len(httpErrorPrefix):])
	}
	return string(r)
}

// loadPageTemplates resolves templates and the stylesheet from the embedded
// assets, or from assetPath with embedded fallback.
func loadPageTemplates(assetPath, style string) (*pipeline.PageTemplates, error) {
	loader, err := assets.NewLoader(assetPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
	}
	defer func() { _ = loader.Close() }()

	if style == "" {
		style = assets.DefaultStyleName
	}
	css, err := loader.Style(style)
	if err != nil {
		return nil, fmt.Errorf("loading style: %w", err)
	}

	set, err := loader.TemplateSet()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	return pipeline.NewPageTemplates(set, css)
}
