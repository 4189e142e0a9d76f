package pdfbook

import (
	"fmt"
	"strconv"
	"strings"
)

// LinkKind classifies a link target. The set is closed: every switch over
// LinkKind handles all values and reports ErrUnhandledKind otherwise.
type LinkKind int

// Link kinds.
const (
	KindUnknown LinkKind = iota
	KindGoogleDoc
	KindGoogleSheet
	KindGoogleSlide
	KindDriveFolder
	KindDriveFile
	KindDirectPDF
	KindGenericWeb
)

var kindNames = [...]string{
	KindUnknown:     "unknown",
	KindGoogleDoc:   "google-doc",
	KindGoogleSheet: "google-sheet",
	KindGoogleSlide: "google-slide",
	KindDriveFolder: "drive-folder",
	KindDriveFile:   "drive-file",
	KindDirectPDF:   "direct-pdf",
	KindGenericWeb:  "generic-web",
}

// String returns a stable lowercase name.
func (k LinkKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// AllKinds returns every defined LinkKind in declaration order.
func AllKinds() []LinkKind {
	kinds := make([]LinkKind, len(kindNames))
	for i := range kindNames {
		kinds[i] = LinkKind(i)
	}
	return kinds
}

// LinkRecord is one hyperlink found in the seed PDF or a Drive folder.
// NormalizedURL is unique across records once deduplicated; SourceOrder is
// the first-seen position and the final merge ordering key.
type LinkRecord struct {
	RawURL        string
	NormalizedURL string
	Kind          LinkKind
	SourceOrder   int
	DisplayText   string // annotation contents or Drive entry title, may be empty
	Label         string // link manifest title, preferred over any fetched title
}

// FailureReason explains why a link contributes no pages.
type FailureReason string

// Failure reasons.
const (
	ReasonTimeout             FailureReason = "timeout"
	ReasonAuthRequired        FailureReason = "auth-required"
	ReasonUnsupportedContent  FailureReason = "unsupported-content"
	ReasonInvalidPDF          FailureReason = "invalid-pdf"
	ReasonInvalidURL          FailureReason = "invalid-url"
	ReasonFolderUnavailable   FailureReason = "folder-unavailable"
	ReasonFolderDepthExceeded FailureReason = "folder-depth-exceeded"
	ReasonNetworkError        FailureReason = "network-error"
)

const httpErrorPrefix = "http-error:"

// HTTPErrorReason returns the reason for a non-success HTTP status.
func HTTPErrorReason(status int) FailureReason {
	return FailureReason(httpErrorPrefix + strconv.Itoa(status))
}

// IsHTTPError reports whether r was built by HTTPErrorReason.
func (r FailureReason) IsHTTPError() bool {
	return strings.HasPrefix(string(r), httpErrorPrefix)
}

// FetchError records a per-link failure. It never aborts a build.
type FetchError struct {
	URL    string
	Reason FailureReason
	Err    error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.URL, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ResolvedDocument is the outcome of fetching one link. Failed documents are
// kept so they can be listed in the references section.
type ResolvedDocument struct {
	Link   LinkRecord
	PDF    []byte
	Pages  int
	Title  string // page title for converted web pages
	Err    *FetchError
	Cached bool
}

// OK reports whether the document resolved to a valid PDF.
func (d ResolvedDocument) OK() bool {
	return d.Err == nil
}

// TocEntry is one table of contents line. StartPage is the printed page
// number, PageIndex the 0-based physical page in the merged book. Section
// entries are group labels pointing at the next labelled document.
type TocEntry struct {
	Heading   string `yaml:"heading"`
	StartPage int    `yaml:"startPage"`
	PageIndex int    `yaml:"pageIndex"`
	Section   bool   `yaml:"section,omitempty"`
}

// Reference is one line of the references section.
type Reference struct {
	Order  int           `yaml:"order"`
	Title  string        `yaml:"title"`
	RawURL string        `yaml:"url"`
	Reason FailureReason `yaml:"reason"`
}

// Manifest describes one book. It is read-only input to a build.
type Manifest struct {
	Name               string
	Title              string
	OutputFilename     string
	Workdir            string
	PredefinedHeadings []string // matched to resolved documents by position
	SectionHeadings    []string // group labels, they consume no document
	TOCTitle           string   // default "Table of Contents"
	ReferencesTitle    string   // default "References & External Links"
	Page               *PageSettings
}

// Default titles for generated sections.
const (
	DefaultTOCTitle        = "Table of Contents"
	DefaultReferencesTitle = "References & External Links"
)

// Validate checks that the manifest is usable for a build.
func (m *Manifest) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: manifest is required", ErrAssembly)
	}
	if err := m.Page.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	for i, h := range m.PredefinedHeadings {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("%w: heading %d is empty", ErrInvalidManifest, i)
		}
	}
	return nil
}

func (m *Manifest) tocTitle() string {
	if m.TOCTitle != "" {
		return m.TOCTitle
	}
	return DefaultTOCTitle
}

func (m *Manifest) referencesTitle() string {
	if m.ReferencesTitle != "" {
		return m.ReferencesTitle
	}
	return DefaultReferencesTitle
}

func (m *Manifest) isSection(heading string) bool {
	heading = strings.TrimSpace(heading)
	for _, s := range m.SectionHeadings {
		if strings.EqualFold(strings.TrimSpace(s), heading) {
			return true
		}
	}
	return false
}

// Cover is the first page group of the book: either a ready PDF or an image
// printed onto a page. PDF wins when both are set.
type Cover struct {
	PDF       []byte
	ImagePath string
}

// Input contains the parameters of one build.
type Input struct {
	IndexPDF []byte         // seed PDF (required)
	Cover    Cover          // cover page (required)
	Manifest *Manifest      // book manifest (required)
	AddTOC   bool           // render a table of contents after the cover
	Links    []ManifestLink // fetched ahead of the seed PDF's links, may be empty
}

// Layout records where each page group sits in the merged book.
type Layout struct {
	CoverPages     int `yaml:"coverPages"`
	TOCPages       int `yaml:"tocPages"`
	ContentPages   int `yaml:"contentPages"`
	ReferencePages int `yaml:"referencePages"`
	TotalPages     int `yaml:"totalPages"`
	FirstNumbered  int `yaml:"firstNumbered"` // 0-based index of the page printed as 1
}

// Result is the outcome of a build.
type Result struct {
	PDF        []byte
	Documents  []ResolvedDocument // in SourceOrder, failures included
	TOC        []TocEntry
	References []Reference
	Layout     Layout
}

// Failed returns the documents that did not resolve.
func (r *Result) Failed() []ResolvedDocument {
	var failed []ResolvedDocument
	for _, d := range r.Documents {
		if !d.OK() {
			failed = append(failed, d)
		}
	}
	return failed
}

// Stage is a step of the build state machine.
type Stage int

// Build stages, in execution order.
const (
	StageCollectLinks Stage = iota
	StageExpandFolders
	StageCanonicalize
	StageFetchAll
	StageMergePass1
	StageMergePass2
	StageStamp
	StageDone
)

var stageNames = [...]string{
	StageCollectLinks:  "collect-links",
	StageExpandFolders: "expand-folders",
	StageCanonicalize:  "canonicalize",
	StageFetchAll:      "fetch-all",
	StageMergePass1:    "merge-pass-1",
	StageMergePass2:    "merge-pass-2",
	StageStamp:         "stamp",
	StageDone:          "done",
}

// String returns the stage name used in logs.
func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
	return stageNames[s]
}
