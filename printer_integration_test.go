//go:build integration

package pdfbook

// Notes:
// - These tests start a real headless Chrome through go-rod. Rod downloads
//   Chromium on first run if none is found.
// - One printer is shared by the printer tests and closed in TestMain.

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

// testTimeout bounds every browser operation.
const testTimeout = 60 * time.Second

// testPrinter is shared by all integration tests.
var testPrinter *rodPrinter

func TestMain(m *testing.M) {
	testPrinter = newRodPrinter(testTimeout)
	code := m.Run()
	_ = testPrinter.Close()
	os.Exit(code)
}

// ---------------------------------------------------------------------------
// TestRodPrinter_PrintHTML - Real browser printing
// ---------------------------------------------------------------------------

func TestRodPrinter_PrintHTML(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	for _, page := range []*PageSettings{nil, {Size: PageSizeA4, Orientation: OrientationLandscape, Margin: 1}} {
		data, err := testPrinter.PrintHTML(ctx, "<html><body><h1>Hello</h1></body></html>", page)
		if err != nil {
			t.Fatalf("PrintHTML(%+v) error = %v", page, err)
		}
		if !looksLikePDF(data) {
			t.Fatalf("PrintHTML() output is not a PDF: %q", data[:min(10, len(data))])
		}
		if n, err := countPages(data); err != nil || n != 1 {
			t.Errorf("countPages() = %d, %v, want 1", n, err)
		}
	}
}

func TestRodPrinter_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := testPrinter.PrintHTML(ctx, "<p>x</p>", nil); err == nil {
		t.Error("PrintHTML() with cancelled context succeeded")
	}
}

// TestRodPrinter_CancelDuringLoad cancels while Chrome waits on a stalled
// subresource; the print must stop with the context error, not the timeout.
func TestRodPrinter_CancelDuringLoad(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	stall := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		stall.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(500*time.Millisecond, cancel)

	start := time.Now()
	_, err := testPrinter.PrintHTML(ctx, `<html><body><img src="`+stall.URL+`/slow.png"></body></html>`, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("PrintHTML() error = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > testTimeout/2 {
		t.Errorf("PrintHTML() returned after %v, cancellation was ignored", elapsed)
	}
}

// ---------------------------------------------------------------------------
// TestBuilder_Integration - Seed to book with a real browser
// ---------------------------------------------------------------------------

func TestBuilder_Integration(t *testing.T) {
	t.Parallel()

	chapter := blankPDF(t, 3)
	mux := http.NewServeMux()
	mux.HandleFunc("/chapter.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(chapter)
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Article</title></head><body><main><h1>Article</h1><p>Body.</p></main></body></html>`))
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	b, err := NewBuilder(WithTimeout(testTimeout), WithCache(NewMemoryCache()))
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*testTimeout)
	defer cancel()

	res, err := b.Build(ctx, Input{
		IndexPDF: linkPDF(t, srv.URL+"/chapter.pdf", srv.URL+"/article", srv.URL+"/private"),
		Cover:    Cover{PDF: blankPDF(t, 1)},
		Manifest: &Manifest{Name: "integration", PredefinedHeadings: []string{"Chapter", "Article", "Private"}},
		AddTOC:   true,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(res.Failed()) != 1 || len(res.References) != 1 {
		t.Errorf("failed = %d, references = %d, want 1 and 1", len(res.Failed()), len(res.References))
	}
	n, err := countPages(res.PDF)
	if err != nil {
		t.Fatalf("countPages() error = %v", err)
	}
	if n != res.Layout.TotalPages {
		t.Errorf("book has %d pages, layout says %d", n, res.Layout.TotalPages)
	}
	if res.Layout.ContentPages < 4 || res.Layout.TOCPages < 1 {
		t.Errorf("Layout = %+v, want 3 chapter pages plus the article and a TOC", res.Layout)
	}
}
