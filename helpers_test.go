package pdfbook

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// ---------------------------------------------------------------------------
// Test PDFs
// ---------------------------------------------------------------------------

// testLink is a URI link annotation placed at (x, y) on a test page.
// rawURI, when set, is written verbatim as the /URI value.
type testLink struct {
	uri      string
	rawURI   string
	contents string
	x, y     float64
}

// testPage describes one page of a generated PDF.
type testPage struct {
	lines  []string
	links  []testLink
	rotate int
}

// makePDF writes a small valid PDF with Helvetica text and URI annotations.
func makePDF(t testing.TB, pages ...testPage) []byte {
	t.Helper()
	if len(pages) == 0 {
		pages = []testPage{{}}
	}

	// Object numbers: 1 catalog, 2 pages, 3 font, then per page:
	// page, content, annotations.
	var objects []string
	objects = append(objects, "", "") // placeholders for 1 and 2
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var kids []string
	for _, p := range pages {
		pageNum := len(objects) + 1
		contentNum := pageNum + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))

		var annotRefs []string
		for i := range p.links {
			annotRefs = append(annotRefs, fmt.Sprintf("%d 0 R", contentNum+1+i))
		}
		annots := ""
		if len(annotRefs) > 0 {
			annots = " /Annots [" + strings.Join(annotRefs, " ") + "]"
		}

		rotate := ""
		if p.rotate != 0 {
			rotate = fmt.Sprintf(" /Rotate %d", p.rotate)
		}

		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R%s%s >>",
			contentNum, annots, rotate))

		content := pageContent(p.lines)
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))

		for _, l := range p.links {
			uri := "(" + escapePDFString(l.uri) + ")"
			if l.rawURI != "" {
				uri = l.rawURI
			}
			objects = append(objects, fmt.Sprintf(
				"<< /Type /Annot /Subtype /Link /Rect [%.0f %.0f %.0f %.0f] /Border [0 0 0] /Contents (%s) /A << /Type /Action /S /URI /URI %s >> >>",
				l.x, l.y-12, l.x+120, l.y, escapePDFString(l.contents), uri))
		}
	}

	objects[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func pageContent(lines []string) string {
	if len(lines) == 0 {
		return "BT /F1 12 Tf 72 720 Td ( ) Tj ET"
	}
	var sb strings.Builder
	sb.WriteString("BT /F1 12 Tf 72 720 Td")
	for i, line := range lines {
		if i > 0 {
			sb.WriteString(" 0 -16 Td")
		}
		fmt.Fprintf(&sb, " (%s) Tj", escapePDFString(line))
	}
	sb.WriteString(" ET")
	return sb.String()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}

// blankPDF returns a PDF with n empty pages.
func blankPDF(t testing.TB, n int) []byte {
	t.Helper()
	pages := make([]testPage, n)
	return makePDF(t, pages...)
}

// linkPDF returns a one-page seed PDF with one annotation per URL, top to
// bottom in the given order.
func linkPDF(t testing.TB, urls ...string) []byte {
	t.Helper()
	p := testPage{}
	for i, u := range urls {
		p.links = append(p.links, testLink{uri: u, x: 72, y: float64(700 - 30*i)})
	}
	return makePDF(t, p)
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

// rewriteTransport sends every request to a test server, keeping the
// original Host so handlers can route on it.
type rewriteTransport struct {
	target string // host:port of the test server
	base   http.RoundTripper
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = "http"
	out.URL.Host = rt.target
	out.Host = req.URL.Host
	resp, err := rt.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

// fakeWeb is an httptest server answering for any host. Requests are
// counted per host+path.
type fakeWeb struct {
	server *httptest.Server
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
	total  atomic.Int64
}

func newFakeWeb(t testing.TB) *fakeWeb {
	t.Helper()
	w := &fakeWeb{
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	w.server = httptest.NewServer(http.HandlerFunc(w.serve))
	t.Cleanup(w.server.Close)
	return w
}

func (w *fakeWeb) serve(rw http.ResponseWriter, r *http.Request) {
	key := r.Host + r.URL.Path
	w.total.Add(1)
	w.mu.Lock()
	w.hits[key]++
	h, ok := w.routes[key]
	w.mu.Unlock()
	if !ok {
		http.NotFound(rw, r)
		return
	}
	h(rw, r)
}

// handle registers h for host+path, e.g. "docs.google.com/document/d/x/export".
func (w *fakeWeb) handle(hostPath string, h http.HandlerFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.routes[hostPath] = h
}

// pdf serves data as application/pdf at hostPath.
func (w *fakeWeb) pdf(hostPath string, data []byte) {
	w.handle(hostPath, func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/pdf")
		_, _ = rw.Write(data)
	})
}

// html serves body as text/html at hostPath.
func (w *fakeWeb) html(hostPath, body string) {
	w.handle(hostPath, func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = rw.Write([]byte(body))
	})
}

// status answers code at hostPath.
func (w *fakeWeb) status(hostPath string, code int) {
	w.handle(hostPath, func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(code)
	})
}

func (w *fakeWeb) hitCount(hostPath string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hits[hostPath]
}

func mustParseURL(t testing.TB, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing %q: %v", raw, err)
	}
	return u
}

func (w *fakeWeb) client() *http.Client {
	return &http.Client{Transport: &rewriteTransport{
		target: strings.TrimPrefix(w.server.URL, "http://"),
		base:   http.DefaultTransport,
	}}
}

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakePrinter prints every document as a one-page PDF.
type fakePrinter struct {
	t      testing.TB
	calls  atomic.Int64
	closed atomic.Bool
}

func (p *fakePrinter) PrintHTML(_ context.Context, _ string, _ *PageSettings) ([]byte, error) {
	p.calls.Add(1)
	return blankPDF(p.t, 1), nil
}

func (p *fakePrinter) Close() error {
	p.closed.Store(true)
	return nil
}

// fakeSections renders sections as blank pages. tocPages decides how many
// pages a TOC with the given entries takes. With tocLinks, the first TOC
// page links every document entry the way the TOC template does.
type fakeSections struct {
	t        testing.TB
	tocPages func(entries []TocEntry) int
	tocLinks bool

	mu       sync.Mutex
	tocCalls [][]TocEntry
	refs     []Reference
	covers   int
}

func (s *fakeSections) RenderCover(_ context.Context, _, _ string) ([]byte, error) {
	s.mu.Lock()
	s.covers++
	s.mu.Unlock()
	return blankPDF(s.t, 1), nil
}

func (s *fakeSections) RenderTOC(_ context.Context, _ string, entries []TocEntry) ([]byte, error) {
	s.mu.Lock()
	s.tocCalls = append(s.tocCalls, entries)
	s.mu.Unlock()
	n := 1
	if s.tocPages != nil {
		n = s.tocPages(entries)
	}
	if !s.tocLinks {
		return blankPDF(s.t, n), nil
	}
	pages := make([]testPage, n)
	for i, e := range entries {
		if !e.Section {
			pages[0].links = append(pages[0].links, testLink{uri: tocTarget(e.PageIndex), x: 72, y: 700 - 20*float64(i)})
		}
	}
	return makePDF(s.t, pages...), nil
}

func (s *fakeSections) RenderReferences(_ context.Context, _ string, refs []Reference) ([]byte, error) {
	s.mu.Lock()
	s.refs = refs
	s.mu.Unlock()
	return blankPDF(s.t, 1), nil
}

// fakeConverter turns any HTML page into a PDF with pages pages.
type fakeConverter struct {
	t     testing.TB
	pages int
	err   error
	calls atomic.Int64
}

func (c *fakeConverter) ConvertHTML(_ context.Context, _, _ string) ([]byte, string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, "", c.err
	}
	return blankPDF(c.t, c.pages), "Converted Page", nil
}

// withPrinter, withSections and withWeb install test seams.
func withPrinter(p htmlPrinter) Option {
	return func(s *settings) { s.printer = p }
}

func withSections(r sectionRenderer) Option {
	return func(s *settings) { s.renderer = r }
}

func withWeb(c webPageConverter) Option {
	return func(s *settings) { s.web = c }
}
