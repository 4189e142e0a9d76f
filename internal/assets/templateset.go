package assets

import "fmt"

// Template names making up a complete set.
const (
	TemplateCover      = "cover"
	TemplateTOC        = "toc"
	TemplateReferences = "references"
	TemplateWebPage    = "webpage"
)

// DefaultStyleName is the name of the built-in CSS style.
const DefaultStyleName = "book"

// TemplateSet holds the HTML templates for the generated book pages.
type TemplateSet struct {
	Cover      string
	TOC        string
	References string
	WebPage    string
}

// TemplateSet loads every template of a set, each from the first layer
// holding it. Returns ErrIncompleteTemplateSet naming the first failure.
func (l *Loader) TemplateSet() (*TemplateSet, error) {
	ts := &TemplateSet{}
	for name, dst := range map[string]*string{
		TemplateCover:      &ts.Cover,
		TemplateTOC:        &ts.TOC,
		TemplateReferences: &ts.References,
		TemplateWebPage:    &ts.WebPage,
	} {
		content, err := l.Load(Template, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrIncompleteTemplateSet, name, err)
		}
		*dst = content
	}
	return ts, nil
}
