package pdfbook

import (
	"strings"
)

// maxTOCRounds bounds re-rendering the TOC until its page count is stable.
const maxTOCRounds = 3

// tocLabel is a heading bound to the resolved document it labels. For a
// section label, doc is the next labelled document.
type tocLabel struct {
	heading string
	doc     int // index into the resolved documents
	section bool
}

// matchHeadings binds manifest headings to resolved documents by position.
// Section headings consume no document and point at the document labelled
// next; a trailing section with nothing after it is dropped. Excess headings
// are ignored and a shortfall leaves later documents unlabelled.
//
// A manifest without any headings labels every document with its own title.
func matchHeadings(m *Manifest, docs []ResolvedDocument) []tocLabel {
	if len(m.PredefinedHeadings) == 0 {
		labels := make([]tocLabel, len(docs))
		for i, d := range docs {
			labels[i] = tocLabel{heading: documentTitle(d), doc: i}
		}
		return labels
	}

	var labels []tocLabel
	var pending []string
	next := 0
	for _, h := range m.PredefinedHeadings {
		h = strings.TrimSpace(h)
		if m.isSection(h) {
			pending = append(pending, h)
			continue
		}
		if next >= len(docs) {
			break
		}
		for _, s := range pending {
			labels = append(labels, tocLabel{heading: s, doc: next, section: true})
		}
		pending = pending[:0]
		labels = append(labels, tocLabel{heading: h, doc: next})
		next++
	}
	return labels
}

// documentTitle is the best available human label for a document.
func documentTitle(d ResolvedDocument) string {
	for _, s := range []string{d.Link.Label, d.Title, d.Link.DisplayText} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return d.Link.RawURL
}

// contentOffsets returns, for each document, the number of content pages
// before it.
func contentOffsets(docs []ResolvedDocument) []int {
	offsets := make([]int, len(docs))
	sum := 0
	for i, d := range docs {
		offsets[i] = sum
		sum += d.Pages
	}
	return offsets
}

// resolveTOC turns labels into entries once the pages before the content
// (cover and TOC) are known.
func resolveTOC(labels []tocLabel, offsets []int, contentStart, firstNumbered int) []TocEntry {
	entries := make([]TocEntry, len(labels))
	for i, l := range labels {
		idx := contentStart + offsets[l.doc]
		entries[i] = TocEntry{
			Heading:   l.heading,
			StartPage: printedNumber(idx, firstNumbered),
			PageIndex: idx,
			Section:   l.section,
		}
	}
	return entries
}

// outlineItems builds bookmarks for every TOC entry plus the references.
func outlineItems(entries []TocEntry, refsTitle string, refsIndex int) []outlineItem {
	items := make([]outlineItem, 0, len(entries)+1)
	for _, e := range entries {
		items = append(items, outlineItem{Title: e.Heading, PageIndex: e.PageIndex})
	}
	if refsIndex >= 0 {
		items = append(items, outlineItem{Title: refsTitle, PageIndex: refsIndex})
	}
	return items
}
