package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// injectStyle appends css as a <style> element to the document head. The
// parser creates a head for documents lacking one.
func injectStyle(page, css string) (string, error) {
	if css == "" {
		return page, nil
	}

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("%w: parsing page: %v", ErrTemplateRender, err)
	}
	head := findElement(doc, "head")
	if head == nil {
		return "", fmt.Errorf("%w: page has no head", ErrTemplateRender)
	}

	style := &html.Node{Type: html.ElementNode, DataAtom: atom.Style, Data: "style"}
	// Raw text: "</" would end the element early.
	style.AppendChild(&html.Node{Type: html.TextNode, Data: strings.ReplaceAll(css, "</", `<\/`)})
	head.AppendChild(style)

	var buf strings.Builder
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return buf.String(), nil
}
