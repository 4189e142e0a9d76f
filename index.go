package pdfbook

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-pdfbook/internal/yamlutil"
)

// IndexFileName is the page index artifact written into the workdir.
const IndexFileName = "page_index.yaml"

// PageIndex maps headings and links to pages of a built book. It is written
// for inspection and debugging; nothing reads it back during a build.
type PageIndex struct {
	BuildID       string            `yaml:"buildId"`
	Book          string            `yaml:"book"`
	BuiltAt       string            `yaml:"builtAt"`
	ContentDigest string            `yaml:"contentDigest"`
	Layout        Layout            `yaml:"layout"`
	TOC           []TocEntry        `yaml:"toc"`
	References    []Reference       `yaml:"references,omitempty"`
	Documents     []IndexedDocument `yaml:"documents"`
}

// IndexedDocument is one link of the book and where its pages landed.
type IndexedDocument struct {
	Order     int           `yaml:"order"`
	URL       string        `yaml:"url"`
	Kind      string        `yaml:"kind"`
	Pages     int           `yaml:"pages"`
	PageIndex int           `yaml:"pageIndex"` // -1 when not in the book
	Cached    bool          `yaml:"cached,omitempty"`
	Reason    FailureReason `yaml:"reason,omitempty"`
}

// NewPageIndex describes res. Each call gets a fresh build id.
func NewPageIndex(m *Manifest, res *Result, builtAt time.Time) *PageIndex {
	idx := &PageIndex{
		BuildID:       uuid.New().String(),
		BuiltAt:       builtAt.UTC().Format(time.RFC3339),
		ContentDigest: ContentDigest(res),
		Layout:        res.Layout,
		TOC:           res.TOC,
		References:    res.References,
	}
	if m != nil {
		idx.Book = m.Name
	}

	next := res.Layout.CoverPages + res.Layout.TOCPages
	for _, d := range res.Documents {
		doc := IndexedDocument{
			Order:     d.Link.SourceOrder,
			URL:       d.Link.RawURL,
			Kind:      d.Link.Kind.String(),
			Pages:     d.Pages,
			PageIndex: -1,
			Cached:    d.Cached,
		}
		if d.OK() {
			doc.PageIndex = next
			next += d.Pages
		} else {
			doc.Reason = d.Err.Reason
		}
		idx.Documents = append(idx.Documents, doc)
	}
	return idx
}

// ContentDigest hashes what determines the book's content: the layout,
// the TOC and the bytes of every resolved document in order. Rendered
// sections and the final file carry timestamps, so they are left out;
// two builds from the same cache share a digest.
func ContentDigest(res *Result) string {
	h := sha256.New()
	l := res.Layout
	for _, n := range []int{l.CoverPages, l.TOCPages, l.ContentPages, l.ReferencePages, l.TotalPages, l.FirstNumbered} {
		h.Write([]byte(strconv.Itoa(n) + "\n"))
	}
	for _, e := range res.TOC {
		fmt.Fprintf(h, "toc %q %d %d %t\n", e.Heading, e.StartPage, e.PageIndex, e.Section)
	}
	for _, r := range res.References {
		fmt.Fprintf(h, "ref %d %q %s\n", r.Order, r.RawURL, r.Reason)
	}
	for _, d := range res.Documents {
		if !d.OK() {
			continue
		}
		sum := sha256.Sum256(d.PDF)
		fmt.Fprintf(h, "doc %q %x\n", d.Link.NormalizedURL, sum)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// WritePageIndex writes idx as YAML to path atomically.
func WritePageIndex(path string, idx *PageIndex) error {
	if err := yamlutil.WriteFile(path, idx, 0o644); err != nil {
		return fmt.Errorf("writing page index: %w", err)
	}
	return nil
}

// ReadPageIndex loads a page index written by WritePageIndex.
func ReadPageIndex(path string) (*PageIndex, error) {
	var idx PageIndex
	if err := yamlutil.ReadFile(path, &idx); err != nil {
		return nil, fmt.Errorf("reading page index: %w", err)
	}
	return &idx, nil
}
