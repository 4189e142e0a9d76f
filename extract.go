package pdfbook

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// bareURL matches http(s) URLs in extracted page text.
var bareURL = regexp.MustCompile(`https?://[^\s\])<>"]+`)

// trailingPunct is sentence punctuation glued to a URL.
const trailingPunct = ",.;)]"

// annotationLink is a URI link annotation with its position on the page.
type annotationLink struct {
	uri      string
	contents string
	x, y     float64 // upper-left corner in PDF user space
}

// ExtractLinks returns the hyperlinks of a seed PDF in first-seen order.
// URI link annotations are collected page by page first, then bare URLs found
// in each page's text that no annotation already captured. Within a page,
// annotations are ordered top to bottom, then left to right.
//
// A page whose annotations or text cannot be decoded is skipped. Only a
// document that cannot be read at all returns ErrExtraction.
func ExtractLinks(pdfData []byte) ([]LinkRecord, error) {
	return extractLinks(pdfData, defaultSettings().logger)
}

func extractLinks(pdfData []byte, logger *slog.Logger) ([]LinkRecord, error) {
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, ErrEmptyIndex)
	}

	// The seed PDF is read without validation: a malformed annotation
	// must cost one link, not the whole document.
	ctx, pages, err := readRelaxed(pdfData)
	if err != nil {
		logger.Debug("annotation reader refused document", "error", err)
		n, terr := textPageCount(pdfData)
		if terr != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
		}
		ctx, pages = nil, n
	}

	var records []LinkRecord
	seen := make(map[string]bool)
	add := func(raw, display string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || seen[raw] {
			return
		}
		seen[raw] = true
		records = append(records, LinkRecord{
			RawURL:      raw,
			SourceOrder: len(records),
			DisplayText: strings.TrimSpace(display),
		})
	}

	if ctx != nil {
		for page := 1; page <= pages; page++ {
			links, err := pageLinks(ctx, page)
			if err != nil {
				logger.Warn("skipping page annotations", "page", page, "error", err)
				continue
			}
			sortReadingOrder(links)
			for _, link := range links {
				add(link.uri, link.contents)
			}
		}
	}
	annotated := len(records)

	for _, urls := range textURLs(pdfData, pages, logger) {
		for _, u := range urls {
			add(u, "")
		}
	}

	logger.Debug("links extracted",
		"pages", pages,
		"annotations", annotated,
		"text", len(records)-annotated)

	return records, nil
}

// pageLinks returns the URI link annotations of one 1-based page.
// Annotations that do not decode as URI links are skipped.
func pageLinks(ctx *model.Context, page int) (links []annotationLink, err error) {
	defer func() {
		if r := recover(); r != nil {
			links, err = nil, fmt.Errorf("reading annotations: %v", r)
		}
	}()

	d, _, _, err := ctx.PageDict(page, false)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	annots, err := ctx.DereferenceArray(d["Annots"])
	if err != nil {
		return nil, err
	}
	for _, o := range annots {
		if link, ok := uriLink(ctx, o); ok {
			links = append(links, link)
		}
	}
	return links, nil
}

// uriLink decodes one annotation. ok is false for anything but a Link
// annotation with a URI action and a string URI.
func uriLink(ctx *model.Context, o types.Object) (annotationLink, bool) {
	d, err := ctx.DereferenceDict(o)
	if err != nil || d == nil {
		return annotationLink{}, false
	}
	if st := d.NameEntry("Subtype"); st == nil || *st != "Link" {
		return annotationLink{}, false
	}
	action, err := ctx.DereferenceDict(d["A"])
	if err != nil || action == nil {
		return annotationLink{}, false
	}
	if s := action.NameEntry("S"); s == nil || *s != "URI" {
		return annotationLink{}, false
	}
	uri, err := ctx.DereferenceText(action["URI"])
	if err != nil || strings.TrimSpace(uri) == "" {
		return annotationLink{}, false
	}

	link := annotationLink{uri: uri}
	if c, ok := d.Find("Contents"); ok {
		link.contents, _ = ctx.DereferenceText(c)
	}
	if rect, err := ctx.DereferenceArray(d["Rect"]); err == nil && len(rect) == 4 {
		llx, lly, urx, ury := number(ctx, rect[0]), number(ctx, rect[1]), number(ctx, rect[2]), number(ctx, rect[3])
		link.x, link.y = min(llx, urx), max(lly, ury)
	}
	return link, true
}

// number resolves a numeric object, 0 for anything else.
func number(ctx *model.Context, o types.Object) float64 {
	o, err := ctx.Dereference(o)
	if err != nil {
		return 0
	}
	switch v := o.(type) {
	case types.Integer:
		return float64(v)
	case types.Float:
		return float64(v)
	}
	return 0
}

// sortReadingOrder sorts top to bottom (PDF y grows upward), then left to
// right, with the URI as a final tie-break.
func sortReadingOrder(links []annotationLink) {
	sort.SliceStable(links, func(i, j int) bool {
		a, b := links[i], links[j]
		if a.y != b.y {
			return a.y > b.y
		}
		if a.x != b.x {
			return a.x < b.x
		}
		return a.uri < b.uri
	})
}

// textURLs returns bare URLs per page (index 0 = page 1) in text order.
// Pages whose text cannot be extracted yield no URLs.
func textURLs(pdfData []byte, pages int, logger *slog.Logger) [][]string {
	out := make([][]string, pages)

	reader, err := newTextReader(pdfData)
	if err != nil {
		logger.Warn("skipping text link scan", "error", err)
		return out
	}

	n := min(reader.NumPage(), pages)
	for i := 1; i <= n; i++ {
		text, err := pageText(reader, i)
		if err != nil {
			logger.Warn("skipping page text", "page", i, "error", err)
			continue
		}
		out[i-1] = findURLs(text)
	}
	return out
}

// newTextReader opens pdfData for text extraction, recovering from parser
// panics on malformed cross-reference data.
func newTextReader(pdfData []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("opening text reader: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
}

// pageText extracts plain text from one page, recovering from parser panics.
func pageText(reader *pdf.Reader, page int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extracting text: %v", r)
		}
	}()

	p := reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// findURLs returns bare http(s) URLs in s with trailing punctuation removed.
func findURLs(s string) []string {
	matches := bareURL.FindAllString(s, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, trailingPunct)
		if !strings.HasSuffix(m, "://") {
			urls = append(urls, m)
		}
	}
	return urls
}
