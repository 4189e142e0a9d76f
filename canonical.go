package pdfbook

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Google hosts with dedicated handling.
const (
	docsHost  = "docs.google.com"
	driveHost = "drive.google.com"
)

var (
	// /document/d/e/<id>/pub, /spreadsheets/d/e/<id>/pubhtml, ...
	publishedPath = regexp.MustCompile(`^/(document|spreadsheets|presentation)/(?:u/\d+/)?d/e/([\w-]+)(?:/|$)`)

	// /document/d/<id>/edit, /spreadsheets/u/1/d/<id>/view, ...
	docsPath = regexp.MustCompile(`^/(document|spreadsheets|presentation)/(?:u/\d+/)?d/([\w-]+)`)

	// /drive/folders/<id>, /drive/u/0/folders/<id>
	folderPath = regexp.MustCompile(`^/drive/(?:u/\d+/)?folders/([\w-]+)`)

	// /file/d/<id>/view
	filePath = regexp.MustCompile(`^/file/(?:u/\d+/)?d/([\w-]+)`)

	driveID = regexp.MustCompile(`^[\w-]+$`)
)

// trackingParams are query parameters that never change the resource.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"dclid":   true,
	"msclkid": true,
	"mc_cid":  true,
	"mc_eid":  true,
	"_ga":     true,
	"_hsenc":  true,
	"_hsmi":   true,
}

var docsKinds = map[string]LinkKind{
	"document":     KindGoogleDoc,
	"spreadsheets": KindGoogleSheet,
	"presentation": KindGoogleSlide,
}

// Canonicalize classifies raw and rewrites it to the form that is fetched.
// Google Docs, Sheets and Slides become PDF export URLs (published copies
// under /d/e/ keep their own id), Drive folders keep
// only their id, Drive files become direct downloads, and other web URLs
// lose their fragment and tracking parameters. Malformed or non-web URLs
// are KindUnknown with the trimmed input as normalized URL.
//
// Canonicalize is idempotent: feeding the normalized URL back returns the
// same pair.
func Canonicalize(raw string) (LinkKind, string) {
	trimmed := strings.TrimSpace(raw)
	u, err := parseWebURL(trimmed)
	if err != nil {
		return KindUnknown, trimmed
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	switch u.Hostname() {
	case docsHost:
		if m := publishedPath.FindStringSubmatch(u.Path); m != nil {
			return publishedURL(m[1], m[2])
		}
		if m := docsPath.FindStringSubmatch(u.Path); m != nil {
			return docsKinds[m[1]], "https://" + docsHost + "/" + m[1] + "/d/" + m[2] + "/export?format=pdf"
		}
	case driveHost:
		if m := folderPath.FindStringSubmatch(u.Path); m != nil {
			return KindDriveFolder, folderURL(m[1])
		}
		if id := driveFileID(u); id != "" {
			return KindDriveFile, driveDownloadURL(id)
		}
	}

	u.RawQuery = stripTracking(u.RawQuery)
	u.ForceQuery = false

	if strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return KindDirectPDF, u.String()
	}
	return KindGenericWeb, u.String()
}

// CanonicalizeRecord returns rec with Kind and NormalizedURL set from RawURL.
func CanonicalizeRecord(rec LinkRecord) LinkRecord {
	rec.Kind, rec.NormalizedURL = Canonicalize(rec.RawURL)
	return rec
}

// Dedupe keeps the first record for each NormalizedURL, preserving order.
func Dedupe(records []LinkRecord) []LinkRecord {
	seen := make(map[string]bool, len(records))
	out := make([]LinkRecord, 0, len(records))
	for _, rec := range records {
		if seen[rec.NormalizedURL] {
			continue
		}
		seen[rec.NormalizedURL] = true
		out = append(out, rec)
	}
	return out
}

// parseWebURL parses s and requires an http(s) scheme and a host.
func parseWebURL(s string) (*url.URL, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrCanonicalization)
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCanonicalization, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrCanonicalization, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrCanonicalization)
	}
	u.Scheme = scheme
	return u, nil
}

// driveFileID extracts the file id from /file/d/<id>, /open?id=<id> and
// /uc?id=<id> forms. Returns "" for anything else.
func driveFileID(u *url.URL) string {
	if m := filePath.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	switch strings.TrimSuffix(u.Path, "/") {
	case "/open", "/uc":
		if id := u.Query().Get("id"); driveID.MatchString(id) {
			return id
		}
	}
	return ""
}

// publishedURL handles "publish to the web" links, whose ids live under
// /d/e/ and have no export endpoint. Sheets still serve a PDF from the
// published page; documents and slides are converted like web pages.
func publishedURL(app, id string) (LinkKind, string) {
	base := "https://" + docsHost + "/" + app + "/d/e/" + id + "/pub"
	if app == "spreadsheets" {
		return KindGoogleSheet, base + "?output=pdf"
	}
	return KindGenericWeb, base
}

func folderURL(id string) string {
	return "https://" + driveHost + "/drive/folders/" + id
}

func driveDownloadURL(id string) string {
	return "https://" + driveHost + "/uc?export=download&id=" + id
}

// stripTracking drops tracking parameters from a raw query, keeping the
// remaining parameters in their original order and encoding.
func stripTracking(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	parts := strings.Split(rawQuery, "&")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" {
			continue
		}
		key, _, _ := strings.Cut(part, "=")
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		key = strings.ToLower(key)
		if strings.HasPrefix(key, "utm_") || trackingParams[key] {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "&")
}
