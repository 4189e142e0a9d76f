package pdfbook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alnah/go-pdfbook/internal/assets"
)

// recordingPrinter keeps the HTML of every print.
type recordingPrinter struct {
	t     testing.TB
	mu    sync.Mutex
	pages []string
}

func (p *recordingPrinter) PrintHTML(_ context.Context, html string, _ *PageSettings) ([]byte, error) {
	p.mu.Lock()
	p.pages = append(p.pages, html)
	p.mu.Unlock()
	return blankPDF(p.t, 1), nil
}

func (p *recordingPrinter) Close() error { return nil }

func (p *recordingPrinter) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pages) == 0 {
		return ""
	}
	return p.pages[len(p.pages)-1]
}

func newTestSections(t *testing.T) (*htmlSections, *recordingPrinter) {
	t.Helper()
	templates, err := loadPageTemplates("", "")
	if err != nil {
		t.Fatalf("loadPageTemplates() error = %v", err)
	}
	printer := &recordingPrinter{t: t}
	return newHTMLSections(templates, printer, DefaultPageSettings()), printer
}

// ---------------------------------------------------------------------------
// TestHTMLSections - Generated pages
// ---------------------------------------------------------------------------

func TestHTMLSections_RenderTOC(t *testing.T) {
	t.Parallel()

	s, printer := newTestSections(t)
	pdf, err := s.RenderTOC(context.Background(), "Contents", []TocEntry{
		{Heading: "Part One", Section: true},
		{Heading: "Prompt Chaining", StartPage: 3},
		{Heading: "Routing", StartPage: 17, PageIndex: 19},
	})
	if err != nil {
		t.Fatalf("RenderTOC() error = %v", err)
	}
	if len(pdf) == 0 {
		t.Error("RenderTOC() returned no PDF")
	}

	got := printer.last()
	for _, want := range []string{"Contents", `<li class="toc-section">Part One</li>`, "Prompt Chaining", `<span class="toc-page">17</span>`, "<style>", `href="https://pdfbook.invalid/page/19"`} {
		if !strings.Contains(got, want) {
			t.Errorf("TOC page missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, `class="toc-link"`) != 2 {
		t.Errorf("want a link per document entry, none for sections:\n%s", got)
	}
}

func TestHTMLSections_RenderReferences(t *testing.T) {
	t.Parallel()

	s, printer := newTestSections(t)
	_, err := s.RenderReferences(context.Background(), "References", []Reference{
		{Order: 1, Title: "Private", RawURL: "https://docs.google.com/document/d/x/edit", Reason: ReasonAuthRequired},
		{Order: 2, RawURL: "https://example.com/gone", Reason: HTTPErrorReason(404)},
	})
	if err != nil {
		t.Fatalf("RenderReferences() error = %v", err)
	}

	got := printer.last()
	for _, want := range []string{"not publicly accessible", "server answered 404", "https://example.com/gone"} {
		if !strings.Contains(got, want) {
			t.Errorf("references page missing %q:\n%s", want, got)
		}
	}
}

func TestHTMLSections_RenderCover(t *testing.T) {
	t.Parallel()

	img := filepath.Join(t.TempDir(), "cover.png")
	if err := os.WriteFile(img, []byte("png"), 0o600); err != nil {
		t.Fatal(err)
	}

	s, printer := newTestSections(t)
	if _, err := s.RenderCover(context.Background(), "Handbook", img); err != nil {
		t.Fatalf("RenderCover() error = %v", err)
	}

	got := printer.last()
	if !strings.Contains(got, `src="file://`) || !strings.Contains(got, "cover.png") {
		t.Errorf("cover page does not reference the image:\n%s", got)
	}
}

// ---------------------------------------------------------------------------
// TestLoadPageTemplates - Asset resolution
// ---------------------------------------------------------------------------

func TestLoadPageTemplates(t *testing.T) {
	t.Parallel()

	custom := t.TempDir()
	if err := os.MkdirAll(filepath.Join(custom, "styles"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(custom, "styles", "plain.css"), []byte("body{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		assetPath string
		style     string
		wantErr   error
	}{
		{name: "embedded default"},
		{name: "custom style", assetPath: custom, style: "plain"},
		{name: "embedded style through custom dir", assetPath: custom, style: assets.DefaultStyleName},
		{name: "unknown style", style: "fancy", wantErr: assets.ErrStyleNotFound},
		{name: "missing dir", assetPath: filepath.Join(custom, "nope"), wantErr: ErrInvalidAssetPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := loadPageTemplates(tt.assetPath, tt.style)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("loadPageTemplates() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("loadPageTemplates() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDescribeReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reason FailureReason
		want   string
	}{
		{ReasonTimeout, "timed out"},
		{ReasonInvalidPDF, "not a valid PDF"},
		{ReasonFolderDepthExceeded, "folder nested too deeply"},
		{HTTPErrorReason(503), "server answered 503"},
		{FailureReason("something-new"), "something-new"},
	}

	for _, tt := range tests {
		if got := describeReason(tt.reason); got != tt.want {
			t.Errorf("describeReason(%q) = %q, want %q", tt.reason, got, tt.want)
		}
	}
}
