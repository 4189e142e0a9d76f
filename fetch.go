package pdfbook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fetcher downloads or converts one canonical link into a PDF.
// It is safe for concurrent use when its Cache is.
type Fetcher struct {
	cfg *settings
}

// NewFetcher creates a Fetcher. Web pages cannot be converted without a
// browser, so a bare Fetcher reports HTML pages as unsupported-content;
// the Builder wires a converter in.
func NewFetcher(opts ...Option) *Fetcher {
	cfg := newSettings(opts)
	return newFetcher(&cfg)
}

func newFetcher(cfg *settings) *Fetcher {
	return &Fetcher{cfg: cfg}
}

// Fetch resolves link once. It never returns an error: every failure is
// recorded on the document so the link can be listed in references.
func (f *Fetcher) Fetch(ctx context.Context, link LinkRecord) (doc ResolvedDocument) {
	doc = ResolvedDocument{Link: link}

	defer func() {
		if r := recover(); r != nil {
			doc.PDF = nil
			doc.Pages = 0
			doc.Err = &FetchError{URL: link.NormalizedURL, Reason: ReasonUnsupportedContent, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	switch link.Kind {
	case KindDriveFolder, KindUnknown:
		doc.Err = &FetchError{
			URL:    link.NormalizedURL,
			Reason: ReasonUnsupportedContent,
			Err:    fmt.Errorf("%s links are not fetchable", link.Kind),
		}
		return doc
	case KindGoogleDoc, KindGoogleSheet, KindGoogleSlide, KindDriveFile, KindDirectPDF, KindGenericWeb:
	default:
		doc.Err = &FetchError{URL: link.NormalizedURL, Reason: ReasonUnsupportedContent, Err: fmt.Errorf("%w: %s", ErrUnhandledKind, link.Kind)}
		return doc
	}

	if data, info, ok := f.cached(link.NormalizedURL); ok {
		f.cfg.logger.Debug("cache hit", "url", link.NormalizedURL, "pages", info.Pages)
		doc.PDF, doc.Pages, doc.Cached = data, info.Pages, true
		doc.Title = webTitle(link, info)
		return doc
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.timeout)
	defer cancel()

	data, title, ferr := f.download(ctx, link)
	if ferr != nil {
		doc.Err = ferr
		return doc
	}

	// A converted page keeps its title inside the PDF so a cache hit
	// labels it the same way.
	if title != "" {
		if titled, err := setTitle(data, title); err == nil {
			data = titled
		} else {
			f.cfg.logger.Warn("recording page title failed", "url", link.NormalizedURL, "error", err)
		}
	}

	info, err := inspectPDF(data)
	if err != nil {
		reason := ReasonInvalidPDF
		if link.Kind == KindGenericWeb {
			reason = ReasonUnsupportedContent
		}
		doc.Err = &FetchError{URL: link.NormalizedURL, Reason: reason, Err: err}
		return doc
	}

	doc.PDF, doc.Pages, doc.Title = data, info.Pages, webTitle(link, info)

	if f.cfg.cache != nil {
		if err := f.cfg.cache.Put(link.NormalizedURL, data); err != nil {
			f.cfg.logger.Warn("caching document failed", "url", link.NormalizedURL, "error", err)
		}
	}
	return doc
}

// webTitle is the label source for web pages. Exported documents are
// labelled by headings or link text instead.
func webTitle(link LinkRecord, info pdfInfo) string {
	if link.Kind != KindGenericWeb {
		return ""
	}
	return info.Title
}

// cached returns a cache entry that satisfies the validity rule.
func (f *Fetcher) cached(key string) ([]byte, pdfInfo, bool) {
	if f.cfg.cache == nil {
		return nil, pdfInfo{}, false
	}
	data, ok := f.cfg.cache.Get(key)
	if !ok {
		return nil, pdfInfo{}, false
	}
	info, err := inspectPDF(data)
	if err != nil {
		f.cfg.logger.Debug("ignoring unusable cache entry", "url", key, "error", err)
		return nil, pdfInfo{}, false
	}
	return data, info, true
}

// download dispatches on the link kind. The returned bytes are not yet
// validated beyond what each kind requires.
func (f *Fetcher) download(ctx context.Context, link LinkRecord) ([]byte, string, *FetchError) {
	switch link.Kind {
	case KindGoogleDoc, KindGoogleSheet, KindGoogleSlide, KindDirectPDF:
		resp, ferr := f.cfg.get(ctx, link.NormalizedURL)
		if ferr != nil {
			return nil, "", ferr
		}
		return f.requirePDF(link, resp)

	case KindDriveFile:
		return f.downloadDriveFile(ctx, link)

	case KindGenericWeb:
		return f.downloadWebPage(ctx, link)

	case KindDriveFolder, KindUnknown:
		return nil, "", &FetchError{URL: link.NormalizedURL, Reason: ReasonUnsupportedContent}
	}
	return nil, "", &FetchError{URL: link.NormalizedURL, Reason: ReasonUnsupportedContent, Err: fmt.Errorf("%w: %s", ErrUnhandledKind, link.Kind)}
}

// requirePDF accepts a PDF body. An HTML answer to an export request is
// the sign-in wall of a private document.
func (f *Fetcher) requirePDF(link LinkRecord, resp *response) ([]byte, string, *FetchError) {
	if looksLikePDF(resp.body) {
		return resp.body, "", nil
	}
	if resp.isHTML() && isGoogleExport(link.Kind) && looksLikeSignIn(resp.body) {
		return nil, "", &FetchError{URL: link.NormalizedURL, Reason: ReasonAuthRequired, Err: errors.New("sign-in page returned")}
	}
	return nil, "", &FetchError{URL: link.NormalizedURL, Reason: ReasonInvalidPDF, Err: errNotPDF}
}

// downloadDriveFile follows the confirmation page Drive shows for files too
// large to virus scan.
func (f *Fetcher) downloadDriveFile(ctx context.Context, link LinkRecord) ([]byte, string, *FetchError) {
	resp, ferr := f.cfg.get(ctx, link.NormalizedURL)
	if ferr != nil {
		return nil, "", ferr
	}
	if looksLikePDF(resp.body) || !resp.isHTML() {
		return f.requirePDF(link, resp)
	}

	next := driveConfirmURL(resp.body, resp.finalURL)
	if next == "" {
		if looksLikeSignIn(resp.body) {
			return nil, "", &FetchError{URL: link.NormalizedURL, Reason: ReasonAuthRequired, Err: errors.New("sign-in page returned")}
		}
		return nil, "", &FetchError{URL: link.NormalizedURL, Reason: ReasonInvalidPDF, Err: errNotPDF}
	}

	f.cfg.logger.Debug("following drive confirmation", "url", link.NormalizedURL)
	resp, ferr = f.cfg.get(ctx, next)
	if ferr != nil {
		ferr.URL = link.NormalizedURL
		return nil, "", ferr
	}
	return f.requirePDF(link, resp)
}

// downloadWebPage accepts a PDF served from a page URL and converts HTML.
func (f *Fetcher) downloadWebPage(ctx context.Context, link LinkRecord) ([]byte, string, *FetchError) {
	resp, ferr := f.cfg.get(ctx, link.NormalizedURL)
	if ferr != nil {
		return nil, "", ferr
	}
	if looksLikePDF(resp.body) {
		return resp.body, "", nil
	}
	if !resp.isHTML() {
		return nil, "", &FetchError{
			URL:    link.NormalizedURL,
			Reason: ReasonUnsupportedContent,
			Err:    fmt.Errorf("content type %q", resp.contentType),
		}
	}
	if f.cfg.web == nil {
		return nil, "", &FetchError{URL: link.NormalizedURL, Reason: ReasonUnsupportedContent, Err: errors.New("no web page converter")}
	}

	pageURL := link.NormalizedURL
	if resp.finalURL != nil {
		pageURL = resp.finalURL.String()
	}
	data, title, err := f.cfg.web.ConvertHTML(ctx, string(resp.body), pageURL)
	if err != nil {
		reason := ReasonUnsupportedContent
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		return nil, "", &FetchError{URL: link.NormalizedURL, Reason: reason, Err: err}
	}
	return data, title, nil
}

func isGoogleExport(k LinkKind) bool {
	return k == KindGoogleDoc || k == KindGoogleSheet || k == KindGoogleSlide
}

// looksLikeSignIn reports whether an HTML body is a Google sign-in page.
func looksLikeSignIn(body []byte) bool {
	return bytes.Contains(body, []byte(signInHost)) || bytes.Contains(body, []byte("ServiceLogin"))
}

// driveConfirmURL finds the real download link on a Drive confirmation
// page: the download form with its hidden inputs, or the
// uc-download-link anchor of older pages. Returns "" when absent.
func driveConfirmURL(body []byte, base *url.URL) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var form, anchor *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.Form && form == nil && attr(n, "id") == "download-form":
				form = n
			case n.DataAtom == atom.A && anchor == nil && attr(n, "id") == "uc-download-link":
				anchor = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	switch {
	case form != nil:
		action := resolveAgainst(base, attr(form, "action"))
		if action == nil {
			return ""
		}
		q := action.Query()
		collectHiddenInputs(form, q)
		action.RawQuery = q.Encode()
		return action.String()
	case anchor != nil:
		if href := resolveAgainst(base, attr(anchor, "href")); href != nil {
			return href.String()
		}
	}
	return ""
}

func collectHiddenInputs(n *html.Node, q url.Values) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Input && strings.EqualFold(attr(c, "type"), "hidden") {
			if name := attr(c, "name"); name != "" {
				q.Set(name, attr(c, "value"))
			}
		}
		collectHiddenInputs(c, q)
	}
}

// resolveAgainst resolves ref against base; nil when ref is empty or bad.
func resolveAgainst(base *url.URL, ref string) *url.URL {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	return u
}

// attr returns the value of the named attribute or "".
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
