package pdfbook

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// ManifestLink is one row of a link manifest: a document fetched ahead of
// the seed PDF's links, under an optional title.
type ManifestLink struct {
	Title string
	URL   string
	Order string // sort key, numeric when it parses as a number
}

// ReadLinkManifest parses a CSV link manifest. The first row names the
// columns; url is required, title and order are optional and column names
// are matched case-insensitively. Rows without a URL are skipped. Links are
// returned sorted by order: numeric orders first, then the rest by text,
// ties kept in file order.
func ReadLinkManifest(r io.Reader) ([]ManifestLink, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: link manifest: %w", ErrInvalidManifest, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := map[string]int{"title": -1, "url": -1, "order": -1}
	for i, name := range rows[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if j, ok := cols[name]; ok && j < 0 {
			cols[name] = i
		}
	}
	if cols["url"] < 0 {
		return nil, fmt.Errorf("%w: link manifest: %w", ErrInvalidManifest, errNoURLColumn)
	}

	cell := func(row []string, col string) string {
		i := cols[col]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var links []ManifestLink
	for _, row := range rows[1:] {
		link := ManifestLink{
			Title: cell(row, "title"),
			URL:   cell(row, "url"),
			Order: cell(row, "order"),
		}
		if link.URL == "" {
			continue
		}
		links = append(links, link)
	}
	slices.SortStableFunc(links, func(a, b ManifestLink) int { return compareOrder(a.Order, b.Order) })
	return links, nil
}

var errNoURLColumn = errors.New("no url column")

// compareOrder sorts numbers before text, numbers by value.
func compareOrder(a, b string) int {
	x, aerr := strconv.ParseFloat(a, 64)
	y, berr := strconv.ParseFloat(b, 64)
	switch {
	case aerr == nil && berr == nil:
		return cmp.Compare(x, y)
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// withManifestLinks puts links ahead of extracted records. Extracted records
// whose raw URL a manifest row names are dropped; SourceOrder is renumbered.
func withManifestLinks(links []ManifestLink, extracted []LinkRecord) []LinkRecord {
	if len(links) == 0 {
		return extracted
	}

	out := make([]LinkRecord, 0, len(links)+len(extracted))
	listed := make(map[string]bool, len(links))
	for _, l := range links {
		listed[l.URL] = true
		out = append(out, LinkRecord{RawURL: l.URL, SourceOrder: len(out), Label: l.Title})
	}
	for _, rec := range extracted {
		if listed[rec.RawURL] {
			continue
		}
		rec.SourceOrder = len(out)
		out = append(out, rec)
	}
	return out
}
