package pdfbook

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func indexResult() *Result {
	return &Result{
		Documents: []ResolvedDocument{
			{Link: LinkRecord{RawURL: "https://example.com/a.pdf", NormalizedURL: "https://example.com/a.pdf", Kind: KindDirectPDF, SourceOrder: 0}, PDF: []byte("a"), Pages: 2},
			{Link: LinkRecord{RawURL: "https://docs.google.com/document/d/x/edit", Kind: KindGoogleDoc, SourceOrder: 1}, Err: &FetchError{Reason: ReasonAuthRequired}},
			{Link: LinkRecord{RawURL: "https://example.com/b.pdf", NormalizedURL: "https://example.com/b.pdf", Kind: KindDirectPDF, SourceOrder: 2}, PDF: []byte("b"), Pages: 3, Cached: true},
		},
		TOC: []TocEntry{
			{Heading: "A", StartPage: 1, PageIndex: 2},
			{Heading: "B", StartPage: 3, PageIndex: 4},
		},
		References: []Reference{{Order: 1, Title: "x", RawURL: "https://docs.google.com/document/d/x/edit", Reason: ReasonAuthRequired}},
		Layout:     Layout{CoverPages: 1, TOCPages: 1, ContentPages: 5, ReferencePages: 1, TotalPages: 8, FirstNumbered: 2},
	}
}

// ---------------------------------------------------------------------------
// TestNewPageIndex - Documents land after cover and TOC
// ---------------------------------------------------------------------------

func TestNewPageIndex(t *testing.T) {
	t.Parallel()

	builtAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	idx := NewPageIndex(&Manifest{Name: "handbook"}, indexResult(), builtAt)

	if idx.Book != "handbook" {
		t.Errorf("Book = %q", idx.Book)
	}
	if idx.BuiltAt != "2026-03-01T11:00:00Z" {
		t.Errorf("BuiltAt = %q, want UTC RFC 3339", idx.BuiltAt)
	}
	if idx.BuildID == "" {
		t.Error("BuildID is empty")
	}

	want := []IndexedDocument{
		{Order: 0, URL: "https://example.com/a.pdf", Kind: "direct-pdf", Pages: 2, PageIndex: 2},
		{Order: 1, URL: "https://docs.google.com/document/d/x/edit", Kind: "google-doc", PageIndex: -1, Reason: ReasonAuthRequired},
		{Order: 2, URL: "https://example.com/b.pdf", Kind: "direct-pdf", Pages: 3, PageIndex: 4, Cached: true},
	}
	if !reflect.DeepEqual(idx.Documents, want) {
		t.Errorf("Documents =\n%+v\nwant\n%+v", idx.Documents, want)
	}

	if other := NewPageIndex(nil, indexResult(), builtAt); other.BuildID == idx.BuildID {
		t.Error("two indexes share a build id")
	}
}

func TestContentDigest(t *testing.T) {
	t.Parallel()

	base := ContentDigest(indexResult())
	if base != ContentDigest(indexResult()) {
		t.Fatal("ContentDigest() is not deterministic")
	}

	changed := indexResult()
	changed.Documents[2].PDF = []byte("b2")
	if ContentDigest(changed) == base {
		t.Error("digest ignores document bytes")
	}

	moved := indexResult()
	moved.TOC[1].StartPage = 4
	if ContentDigest(moved) == base {
		t.Error("digest ignores TOC pages")
	}

	stamped := indexResult()
	stamped.PDF = []byte("final bytes with a timestamp")
	if ContentDigest(stamped) != base {
		t.Error("digest depends on the final file")
	}
}

func TestPageIndex_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), IndexFileName)
	idx := NewPageIndex(&Manifest{Name: "handbook"}, indexResult(), time.Unix(0, 0))

	if err := WritePageIndex(path, idx); err != nil {
		t.Fatalf("WritePageIndex() error = %v", err)
	}
	got, err := ReadPageIndex(path)
	if err != nil {
		t.Fatalf("ReadPageIndex() error = %v", err)
	}
	if !reflect.DeepEqual(got, idx) {
		t.Errorf("round trip =\n%+v\nwant\n%+v", got, idx)
	}
}

func TestReadPageIndex_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := ReadPageIndex(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("ReadPageIndex(missing) error = nil")
	}
}
