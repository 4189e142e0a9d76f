package pdfbook

import (
	"context"
	"fmt"
)

// bookParts are the page groups of the book in merge order.
type bookParts struct {
	cover   []byte
	toc     []byte
	content []ResolvedDocument // resolved documents only, in SourceOrder
	refs    []byte
	layout  Layout
}

// mergePass1 counts pages of every group whose size does not depend on
// page numbers: the cover, each resolved document and the references.
func (r *buildRun) mergePass1(ctx context.Context) error {
	cover, err := r.coverPDF(ctx)
	if err != nil {
		return err
	}
	coverPages, err := countPages(cover)
	if err != nil {
		return fmt.Errorf("%w: cover is unreadable: %v", ErrAssembly, err)
	}
	r.parts.cover = cover
	r.parts.layout.CoverPages = coverPages

	for _, d := range r.docs {
		if d.OK() {
			r.parts.content = append(r.parts.content, d)
			r.parts.layout.ContentPages += d.Pages
		}
	}

	r.result.References = buildReferences(r.docs)
	if len(r.result.References) > 0 {
		refs, err := r.sections.RenderReferences(ctx, r.in.Manifest.referencesTitle(), r.result.References)
		if err != nil {
			return fmt.Errorf("%w: rendering references: %w", ErrAssembly, err)
		}
		refPages, err := countPages(refs)
		if err != nil {
			return fmt.Errorf("%w: references section is unreadable: %v", ErrAssembly, err)
		}
		r.parts.refs = refs
		r.parts.layout.ReferencePages = refPages
	}
	return nil
}

// coverPDF returns the cover as given, or prints the cover image.
func (r *buildRun) coverPDF(ctx context.Context) ([]byte, error) {
	if len(r.in.Cover.PDF) > 0 {
		return r.in.Cover.PDF, nil
	}
	pdf, err := r.sections.RenderCover(ctx, r.in.Manifest.Title, r.in.Cover.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: rendering cover: %w", ErrAssembly, err)
	}
	return pdf, nil
}

// buildReferences lists every unresolved record once, in SourceOrder.
func buildReferences(docs []ResolvedDocument) []Reference {
	var refs []Reference
	for _, d := range docs {
		if d.OK() {
			continue
		}
		refs = append(refs, Reference{
			Order:  len(refs) + 1,
			Title:  documentTitle(d),
			RawURL: d.Link.RawURL,
			Reason: d.Err.Reason,
		})
	}
	return refs
}

// mergePass2 resolves TOC offsets now that every other group is counted,
// merges the groups, links the TOC, adds the outline and checks the page
// count.
func (r *buildRun) mergePass2(ctx context.Context) error {
	labels := matchHeadings(r.in.Manifest, r.parts.content)
	offsets := contentOffsets(r.parts.content)

	if r.in.AddTOC && len(labels) > 0 {
		if err := r.renderTOC(ctx, labels, offsets); err != nil {
			return err
		}
	} else {
		r.parts.layout.FirstNumbered = r.firstNumbered(0)
		r.result.TOC = resolveTOC(labels, offsets, r.parts.layout.CoverPages, r.parts.layout.FirstNumbered)
	}

	layout := &r.parts.layout
	layout.TotalPages = layout.CoverPages + layout.TOCPages + layout.ContentPages + layout.ReferencePages

	groups := make([][]byte, 0, len(r.parts.content)+3)
	groups = append(groups, r.parts.cover)
	if r.parts.toc != nil {
		groups = append(groups, r.parts.toc)
	}
	for _, d := range r.parts.content {
		groups = append(groups, d.PDF)
	}
	if r.parts.refs != nil {
		groups = append(groups, r.parts.refs)
	}

	merged, err := mergePDFs(groups)
	if err != nil {
		return fmt.Errorf("%w: merging: %v", ErrAssembly, err)
	}

	if linked, n, err := linkTOC(merged, layout.CoverPages, layout.TOCPages); err != nil {
		r.cfg.logger.Warn("linking table of contents failed", "error", err)
	} else {
		merged = linked
		r.cfg.logger.Debug("table of contents linked", "links", n)
	}

	refsIndex := -1
	if r.parts.refs != nil {
		refsIndex = layout.CoverPages + layout.TOCPages + layout.ContentPages
	}
	if outlined, err := addOutline(merged, outlineItems(r.result.TOC, r.in.Manifest.referencesTitle(), refsIndex)); err != nil {
		r.cfg.logger.Warn("adding bookmarks failed", "error", err)
	} else {
		merged = outlined
	}

	total, err := countPages(merged)
	if err != nil {
		return fmt.Errorf("%w: merged book is unreadable: %v", ErrAssembly, err)
	}
	if total != layout.TotalPages {
		return fmt.Errorf("%w: merged book has %d pages, layout expects %d", ErrAssembly, total, layout.TotalPages)
	}

	r.result.PDF = merged
	r.result.Layout = *layout
	return nil
}

// renderTOC renders the table of contents until its own page count agrees
// with the page numbers printed in it.
func (r *buildRun) renderTOC(ctx context.Context, labels []tocLabel, offsets []int) error {
	layout := &r.parts.layout
	tocPages := 1

	for round := 1; ; round++ {
		first := r.firstNumbered(tocPages)
		entries := resolveTOC(labels, offsets, layout.CoverPages+tocPages, first)

		toc, err := r.sections.RenderTOC(ctx, r.in.Manifest.tocTitle(), entries)
		if err != nil {
			return fmt.Errorf("%w: rendering table of contents: %w", ErrAssembly, err)
		}
		measured, err := countPages(toc)
		if err != nil {
			return fmt.Errorf("%w: table of contents is unreadable: %v", ErrAssembly, err)
		}

		if measured == tocPages {
			r.parts.toc = toc
			layout.TOCPages = tocPages
			layout.FirstNumbered = first
			r.result.TOC = entries
			return nil
		}
		if round == maxTOCRounds {
			return fmt.Errorf("%w: %w after %d rounds", ErrAssembly, errTOCUnstable, round)
		}
		r.cfg.logger.Debug("table of contents length changed, rendering again", "assumed", tocPages, "measured", measured)
		tocPages = measured
	}
}

// firstNumbered is the physical index of the page printed as 1.
func (r *buildRun) firstNumbered(tocPages int) int {
	if r.cfg.numberAllPages {
		return 0
	}
	return r.parts.layout.CoverPages + tocPages
}
