// Package pdfbook compiles a PDF book from the links found in a seed PDF.
//
// # Quick Start
//
// Create a builder, build a book, and close when done:
//
//	b, err := pdfbook.NewBuilder(pdfbook.WithCache(cache))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	res, err := b.Build(ctx, pdfbook.Input{
//	    IndexPDF: seed,
//	    Cover:    pdfbook.Cover{ImagePath: "cover.png"},
//	    Manifest: &pdfbook.Manifest{Title: "Reader"},
//	    AddTOC:   true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("book.pdf", res.PDF, 0644)
//
// Links that cannot be resolved do not fail the build. They are listed in
// the references section at the end of the book and in res.Failed().
//
// # Build Stages
//
// A build runs these stages in order:
//
//  1. collect-links: URI annotations, then bare URLs in page text
//  2. expand-folders: public Google Drive folders replaced by their files
//  3. canonicalize: export URLs, tracking cleanup, deduplication
//  4. fetch-all: bounded concurrent downloads, web pages printed by Chrome
//  5. merge-pass-1: page counts of cover, documents and references
//  6. merge-pass-2: TOC page numbers resolved, groups merged, bookmarks
//  7. stamp: page numbers drawn bottom-right
//
// Documents keep the order their links first appear in the seed PDF,
// whatever order downloads finish in.
//
// # Caching
//
// A Cache keyed by normalized URL is consulted before any network request.
// DirCache persists documents under <workdir>/downloads so a rerun fetches
// nothing already downloaded; MemoryCache keeps them in process.
//
// # Lower-level API
//
// The stages are usable on their own: ExtractLinks, Canonicalize, Dedupe,
// Fetcher.Fetch, FolderExpander.ExpandAll and Stamp.
package pdfbook
