package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// ErrInvalidBaseURL indicates the page URL used to resolve links is unusable.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// linkAttrs maps elements to the attribute holding a URL the printed page
// may follow or load.
var linkAttrs = map[string]string{
	"a":      "href",
	"img":    "src",
	"source": "src",
	"video":  "poster",
}

// parseBaseURL accepts absolute http(s) URLs only.
func parseBaseURL(pageURL string) (*url.URL, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, pageURL)
	}
	return base, nil
}

// resolveLinks rewrites relative targets under n to absolute URLs. Anchors,
// data: and mailto: values and already absolute URLs are left alone.
// srcset lists are dropped because the printer loads only src.
func resolveLinks(n *html.Node, base *url.URL) {
	if n.Type == html.ElementNode {
		attr := linkAttrs[n.Data]
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if a.Key == "srcset" {
				continue
			}
			if a.Key == attr {
				a.Val = absolute(a.Val, base)
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		resolveLinks(c, base)
	}
}

func absolute(value string, base *url.URL) string {
	v := strings.TrimSpace(value)
	if v == "" || strings.HasPrefix(v, "#") {
		return value
	}
	ref, err := url.Parse(v)
	if err != nil || ref.Scheme != "" {
		return value
	}
	return base.ResolveReference(ref).String()
}

// FileURL converts a local path to an absolute file:// URL, for images
// referenced from generated pages.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if !strings.HasPrefix(u.Path, "/") {
		// Windows drive paths.
		u.Path = "/" + u.Path
	}
	return u.String(), nil
}
