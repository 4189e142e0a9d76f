package pdfbook

import "errors"

// Sentinel errors for library operations.
var (
	// Fatal: the seed PDF cannot be read.
	ErrExtraction = errors.New("cannot extract links from seed PDF")
	ErrEmptyIndex = errors.New("seed PDF is empty")

	// Non-fatal: recorded on the affected link and listed in references.
	ErrCanonicalization = errors.New("malformed URL")
	ErrFolderExpansion  = errors.New("drive folder expansion failed")
	ErrUnhandledKind    = errors.New("unhandled link kind")

	// Fatal: no coherent book can be produced.
	ErrAssembly        = errors.New("book assembly failed")
	ErrStamp           = errors.New("page stamping failed")
	ErrInvalidManifest = errors.New("invalid book manifest")

	// Browser printing errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")

	// Page settings validation errors.
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidMargin      = errors.New("invalid margin")

	// Asset loading errors.
	ErrInvalidAssetPath = errors.New("invalid asset path")
)
