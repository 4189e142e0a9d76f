package pdfbook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alnah/go-pdfbook/internal/pipeline"
)

// Builder compiles a book from a seed PDF.
// Create with NewBuilder(), use Build() for each book, and Close() when done.
type Builder struct {
	cfg       settings
	templates *pipeline.PageTemplates
	printer   htmlPrinter
}

// NewBuilder creates a Builder. Templates and styles are loaded eagerly so
// asset errors surface here; the browser starts on first use.
// Returns error if asset loading or template parsing fails.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{cfg: newSettings(opts)}

	if b.cfg.renderer == nil || b.cfg.web == nil {
		templates, err := loadPageTemplates(b.cfg.assetPath, b.cfg.style)
		if err != nil {
			return nil, err
		}
		b.templates = templates
	}

	b.printer = b.cfg.printer
	if b.printer == nil {
		b.printer = newRodPrinter(b.cfg.renderTimeout)
	}
	return b, nil
}

// Close releases resources (headless Chrome browser).
func (b *Builder) Close() error {
	if b.printer != nil {
		return b.printer.Close()
	}
	return nil
}

// Build runs every stage and returns the stamped book. Links that cannot be
// resolved never fail the build; they are listed in the references section
// and in Result.Documents. Only an unreadable seed PDF (ErrExtraction), a
// missing or unreadable cover or manifest (ErrAssembly), a page count
// mismatch (ErrAssembly), a stamping failure (ErrStamp) or cancellation
// return an error.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (b *Builder) Build(ctx context.Context, in Input) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: internal error: %v", ErrAssembly, r)
		}
	}()

	if err := validateInput(in); err != nil {
		return nil, err
	}

	run := b.newRun(in)
	start := time.Now()

	for stage := StageCollectLinks; stage < StageDone; stage++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stageStart := time.Now()
		if err := run.step(ctx, stage); err != nil {
			b.cfg.logger.Error("stage failed", "stage", stage.String(), "error", err)
			return nil, err
		}
		b.cfg.logger.Info("stage done", append([]any{"stage", stage.String(), "duration", time.Since(stageStart)}, run.counts(stage)...)...)
	}

	b.cfg.logger.Info("book built",
		"stage", StageDone.String(),
		"pages", run.result.Layout.TotalPages,
		"documents", len(run.result.Documents),
		"failed", len(run.result.References),
		"duration", time.Since(start))
	return run.result, nil
}

// validateInput is the trust boundary for library users building Input by
// hand; the CLI validates its config earlier.
func validateInput(in Input) error {
	if len(in.IndexPDF) == 0 {
		return fmt.Errorf("%w: %w", ErrExtraction, ErrEmptyIndex)
	}
	if err := in.Manifest.Validate(); err != nil {
		return err
	}
	if len(in.Cover.PDF) == 0 && in.Cover.ImagePath == "" {
		return fmt.Errorf("%w: cover is required", ErrAssembly)
	}
	return nil
}

// buildRun holds the state one Build threads through its stages.
type buildRun struct {
	cfg      *settings
	in       Input
	sections sectionRenderer
	fetcher  documentFetcher
	folders  *FolderExpander

	records  []LinkRecord     // CollectLinks
	expanded []ExpandedRecord // ExpandFolders
	toFetch  []LinkRecord     // Canonicalize
	excluded []ResolvedDocument
	docs     []ResolvedDocument // FetchAll, all records in SourceOrder
	parts    bookParts          // MergePass1 and MergePass2
	result   *Result
}

// newRun wires per-build components with the manifest's page settings.
func (b *Builder) newRun(in Input) *buildRun {
	cfg := b.cfg
	page := in.Manifest.Page

	sections := cfg.renderer
	if sections == nil {
		sections = newHTMLSections(b.templates, b.printer, page)
	}
	if cfg.web == nil {
		cfg.web = newHTMLWebConverter(b.templates, b.printer, page)
	}

	return &buildRun{
		cfg:      &cfg,
		in:       in,
		sections: sections,
		fetcher:  newFetcher(&cfg),
		folders:  newFolderExpander(&cfg),
		result:   &Result{},
	}
}

// step runs one stage. The switch covers every stage before StageDone.
func (r *buildRun) step(ctx context.Context, stage Stage) error {
	switch stage {
	case StageCollectLinks:
		return r.collectLinks()
	case StageExpandFolders:
		r.expandFolders(ctx)
		return nil
	case StageCanonicalize:
		r.canonicalize()
		return nil
	case StageFetchAll:
		return r.fetchAll(ctx)
	case StageMergePass1:
		return r.mergePass1(ctx)
	case StageMergePass2:
		return r.mergePass2(ctx)
	case StageStamp:
		return r.stamp()
	case StageDone:
		return nil
	}
	return fmt.Errorf("%w: unknown stage %s", ErrAssembly, stage)
}

// counts returns log attributes describing a finished stage.
func (r *buildRun) counts(stage Stage) []any {
	switch stage {
	case StageCollectLinks:
		return []any{"links", len(r.records)}
	case StageExpandFolders:
		return []any{"records", len(r.expanded)}
	case StageCanonicalize:
		return []any{"fetch", len(r.toFetch), "excluded", len(r.excluded)}
	case StageFetchAll:
		ok, cached := 0, 0
		for _, d := range r.docs {
			if d.OK() {
				ok++
			}
			if d.Cached {
				cached++
			}
		}
		return []any{"resolved", ok, "failed", len(r.docs) - ok, "cached", cached}
	case StageMergePass1:
		return []any{"coverPages", r.parts.layout.CoverPages, "contentPages", r.parts.layout.ContentPages, "referencePages", r.parts.layout.ReferencePages}
	case StageMergePass2:
		return []any{"tocPages", r.parts.layout.TOCPages, "tocEntries", len(r.result.TOC), "totalPages", r.parts.layout.TotalPages}
	case StageStamp:
		return []any{"firstNumbered", r.result.Layout.FirstNumbered}
	}
	return nil
}

func (r *buildRun) collectLinks() error {
	records, err := extractLinks(r.in.IndexPDF, r.cfg.logger)
	if err != nil {
		return err
	}
	r.records = withManifestLinks(r.in.Links, records)
	if len(r.in.Links) > 0 {
		r.cfg.logger.Debug("link manifest applied", "listed", len(r.in.Links), "links", len(r.records))
	}
	return nil
}

func (r *buildRun) expandFolders(ctx context.Context) {
	canonical := make([]LinkRecord, len(r.records))
	for i, rec := range r.records {
		canonical[i] = CanonicalizeRecord(rec)
	}
	r.expanded = r.folders.ExpandAll(ctx, canonical)
}

// canonicalize keeps the first record per normalized URL and sets aside
// records that cannot be fetched: non-web URLs and failed folders.
func (r *buildRun) canonicalize() {
	seen := make(map[string]bool, len(r.expanded))
	for _, e := range r.expanded {
		rec := e.Link
		if seen[rec.NormalizedURL] {
			continue
		}
		seen[rec.NormalizedURL] = true

		switch {
		case e.Err != nil:
			r.excluded = append(r.excluded, ResolvedDocument{Link: rec, Err: e.Err})
		case rec.Kind == KindUnknown:
			r.cfg.logger.Warn("link excluded", "url", rec.RawURL, "reason", ReasonInvalidURL)
			r.excluded = append(r.excluded, ResolvedDocument{Link: rec, Err: &FetchError{
				URL:    rec.RawURL,
				Reason: ReasonInvalidURL,
				Err:    ErrCanonicalization,
			}})
		default:
			r.toFetch = append(r.toFetch, rec)
		}
	}
}

func (r *buildRun) fetchAll(ctx context.Context) error {
	fetched := fetchAll(ctx, r.fetcher, r.toFetch, r.cfg)
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, d := range fetched {
		if !d.OK() {
			r.cfg.logger.Warn("link failed", "url", d.Link.RawURL, "reason", d.Err.Reason, "error", d.Err.Err)
		}
	}

	docs := make([]ResolvedDocument, 0, len(fetched)+len(r.excluded))
	docs = append(docs, fetched...)
	docs = append(docs, r.excluded...)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Link.SourceOrder < docs[j].Link.SourceOrder
	})
	r.docs = docs
	r.result.Documents = docs
	return nil
}

// stamp numbers pages and fixes the document information so that a rerun
// with the same inputs writes the same bytes.
func (r *buildRun) stamp() error {
	info := docInfo{
		Title: r.in.Manifest.Title,
		ID:    ContentDigest(r.result)[:32],
	}
	stamped, err := stampBook(r.result.PDF, r.result.Layout.FirstNumbered, info)
	if err != nil {
		return err
	}
	r.result.PDF = stamped
	return nil
}

// errTOCUnstable means the TOC page count kept changing between renders.
var errTOCUnstable = errors.New("table of contents page count did not stabilize")
