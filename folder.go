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

// folderListURL is the public, script-free listing of a Drive folder.
const folderListURL = "https://" + driveHost + "/embeddedfolderview?id="

// ExpandedRecord is one record after folder expansion. Err is set for a
// folder that could not be listed; such records contribute no documents.
type ExpandedRecord struct {
	Link LinkRecord
	Err  *FetchError
}

// FolderExpander lists public Google Drive folders.
type FolderExpander struct {
	cfg *settings
}

// NewFolderExpander creates a FolderExpander.
func NewFolderExpander(opts ...Option) *FolderExpander {
	cfg := newSettings(opts)
	return newFolderExpander(&cfg)
}

func newFolderExpander(cfg *settings) *FolderExpander {
	return &FolderExpander{cfg: cfg}
}

// Expand lists the direct children of folder in listing order. Children are
// canonicalized and carry the folder's SourceOrder. A folder that cannot be
// listed yields no children and a FetchError wrapping ErrFolderExpansion.
func (e *FolderExpander) Expand(ctx context.Context, folder LinkRecord) ([]LinkRecord, *FetchError) {
	id := folderID(folder.NormalizedURL)
	if id == "" {
		return nil, &FetchError{
			URL:    folder.NormalizedURL,
			Reason: ReasonInvalidURL,
			Err:    fmt.Errorf("%w: not a folder URL", ErrFolderExpansion),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.timeout)
	defer cancel()

	resp, ferr := e.cfg.get(ctx, folderListURL+id)
	if ferr != nil {
		ferr.URL = folder.NormalizedURL
		if ferr.Reason == HTTPErrorReason(404) {
			ferr.Reason = ReasonFolderUnavailable
		}
		ferr.Err = fmt.Errorf("%w: %w", ErrFolderExpansion, ferr.Err)
		return nil, ferr
	}

	entries, err := parseFolderListing(resp.body)
	if err != nil {
		reason := ReasonFolderUnavailable
		if looksLikeSignIn(resp.body) {
			reason = ReasonAuthRequired
		}
		return nil, &FetchError{URL: folder.NormalizedURL, Reason: reason, Err: fmt.Errorf("%w: %w", ErrFolderExpansion, err)}
	}

	children := make([]LinkRecord, 0, len(entries))
	for _, entry := range entries {
		child := CanonicalizeRecord(LinkRecord{
			RawURL:      entry.href,
			SourceOrder: folder.SourceOrder,
			DisplayText: entry.title,
		})
		children = append(children, child)
	}

	e.cfg.logger.Debug("folder listed", "url", folder.NormalizedURL, "children", len(children))
	return children, nil
}

// ExpandAll replaces every Drive folder in records by its contents,
// recursively, placing children where the folder appeared. A folder seen
// twice is skipped, a folder deeper than the configured bound becomes a
// folder-depth-exceeded record, and an unlistable folder is kept with its
// error. SourceOrder is renumbered densely in the result.
//
// Records must already be canonicalized.
func (e *FolderExpander) ExpandAll(ctx context.Context, records []LinkRecord) []ExpandedRecord {
	visited := make(map[string]bool)
	var out []ExpandedRecord

	var expand func(rec LinkRecord, depth int)
	expand = func(rec LinkRecord, depth int) {
		if rec.Kind != KindDriveFolder {
			out = append(out, ExpandedRecord{Link: rec})
			return
		}
		if visited[rec.NormalizedURL] {
			e.cfg.logger.Debug("skipping folder seen before", "url", rec.NormalizedURL)
			return
		}
		visited[rec.NormalizedURL] = true

		if depth > e.cfg.maxFolderDepth {
			e.cfg.logger.Warn("folder too deep", "url", rec.NormalizedURL, "depth", depth)
			out = append(out, ExpandedRecord{Link: rec, Err: &FetchError{
				URL:    rec.NormalizedURL,
				Reason: ReasonFolderDepthExceeded,
				Err:    fmt.Errorf("%w: depth %d exceeds %d", ErrFolderExpansion, depth, e.cfg.maxFolderDepth),
			}})
			return
		}

		if err := ctx.Err(); err != nil {
			out = append(out, ExpandedRecord{Link: rec, Err: &FetchError{URL: rec.NormalizedURL, Reason: ReasonTimeout, Err: err}})
			return
		}

		children, ferr := e.Expand(ctx, rec)
		if ferr != nil {
			e.cfg.logger.Warn("folder expansion failed", "url", rec.NormalizedURL, "reason", ferr.Reason, "error", ferr.Err)
			out = append(out, ExpandedRecord{Link: rec, Err: ferr})
			return
		}
		for _, child := range children {
			expand(child, depth+1)
		}
	}

	for _, rec := range records {
		expand(rec, 1)
	}

	for i := range out {
		out[i].Link.SourceOrder = i
	}
	return out
}

// folderID extracts the id of a canonical folder URL.
func folderID(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil || !strings.EqualFold(u.Hostname(), driveHost) {
		return ""
	}
	if m := folderPath.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return ""
}

// folderEntry is one item of a folder listing.
type folderEntry struct {
	href  string
	title string
}

var errNoListing = errors.New("no folder listing in page")

// parseFolderListing reads the entries of an embedded folder view in
// document order. A page without the flip-entries container is not a
// listing; an empty container is an empty folder.
func parseFolderListing(body []byte) ([]folderEntry, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	container := findByClass(doc, "flip-entries")
	if container == nil {
		return nil, errNoListing
	}

	var entries []folderEntry
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if href := strings.TrimSpace(attr(n, "href")); href != "" {
				title := ""
				if t := findByClass(n, "flip-entry-title"); t != nil {
					title = strings.TrimSpace(nodeText(t))
				}
				entries = append(entries, folderEntry{href: href, title: title})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(container)
	return entries, nil
}

// findByClass returns the first element under n carrying class.
func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode {
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
