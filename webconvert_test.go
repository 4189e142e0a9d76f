package pdfbook

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alnah/go-pdfbook/internal/pipeline"
)

// ---------------------------------------------------------------------------
// TestHTMLWebConverter - Web page to printed page
// ---------------------------------------------------------------------------

func TestHTMLWebConverter_ConvertHTML(t *testing.T) {
	t.Parallel()

	templates, err := loadPageTemplates("", "")
	if err != nil {
		t.Fatalf("loadPageTemplates() error = %v", err)
	}
	printer := &recordingPrinter{t: t}
	c := newHTMLWebConverter(templates, printer, DefaultPageSettings())

	const page = `<html><head><title>Reflection</title></head><body>
<nav>Menu</nav>
<main><h2>Self critique</h2><p>Agents review <a href="/drafts">drafts</a>.</p></main>
</body></html>`

	pdf, title, err := c.ConvertHTML(context.Background(), page, "https://site.example.com/patterns/reflection")
	if err != nil {
		t.Fatalf("ConvertHTML() error = %v", err)
	}
	if title != "Reflection" {
		t.Errorf("title = %q, want Reflection", title)
	}
	if len(pdf) == 0 {
		t.Error("ConvertHTML() returned no PDF")
	}

	got := printer.last()
	for _, want := range []string{"Self critique", `href="https://site.example.com/drafts"`, "Source:", "https://site.example.com/patterns/reflection"} {
		if !strings.Contains(got, want) {
			t.Errorf("printed page missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Menu") {
		t.Errorf("printed page kept navigation:\n%s", got)
	}
}

func TestHTMLWebConverter_EmptyPage(t *testing.T) {
	t.Parallel()

	templates, err := loadPageTemplates("", "")
	if err != nil {
		t.Fatal(err)
	}
	printer := &recordingPrinter{t: t}
	c := newHTMLWebConverter(templates, printer, DefaultPageSettings())

	_, _, err = c.ConvertHTML(context.Background(), `<html><body><script>x()</script></body></html>`, "https://example.com/")
	if !errors.Is(err, pipeline.ErrEmptyPage) {
		t.Errorf("ConvertHTML() error = %v, want ErrEmptyPage", err)
	}
	if printer.last() != "" {
		t.Error("empty page was printed")
	}
}
