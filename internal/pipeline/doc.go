// Package pipeline turns content into printable HTML pages.
//
// It covers two flows:
//   - Web pages: HTML is reduced to its main content, relative links are
//     resolved against the page URL, and the result is sanitized with a UGC
//     policy and converted to Markdown. The Markdown is normalized and rendered back to
//     clean HTML via Goldmark so the printed page carries no site chrome.
//   - Book pages: cover, table of contents and references pages are rendered
//     from html/template templates with the book stylesheet injected.
//
// PDF printing is handled separately by the root pdfbook package using
// headless Chrome (go-rod). This package never touches the network or the
// browser.
package pipeline
