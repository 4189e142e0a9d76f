package main

import (
	"errors"
	"os"

	pdfbook "github.com/alnah/go-pdfbook"
	"github.com/alnah/go-pdfbook/internal/assets"
	"github.com/alnah/go-pdfbook/internal/config"
)

// Exit codes for the pdfbook CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
// Failed links never change the exit code once the book is written.
const (
	ExitSuccess = 0 // Book written, possibly with failed links
	ExitGeneral = 1 // Assembly, stamping or unexpected errors
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // Unreadable seed or cover, unwritable output
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, pdfbook.ErrBrowserConnect) ||
		errors.Is(err, pdfbook.ErrPageCreate) ||
		errors.Is(err, pdfbook.ErrPageLoad) ||
		errors.Is(err, pdfbook.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, pdfbook.ErrExtraction) ||
		errors.Is(err, ErrReadIndex) ||
		errors.Is(err, ErrReadCover) ||
		errors.Is(err, ErrReadLinks) ||
		errors.Is(err, ErrWorkdir) ||
		errors.Is(err, ErrWritePDF) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidField) ||
		errors.Is(err, pdfbook.ErrInvalidManifest) ||
		errors.Is(err, pdfbook.ErrInvalidPageSize) ||
		errors.Is(err, pdfbook.ErrInvalidOrientation) ||
		errors.Is(err, pdfbook.ErrInvalidMargin) ||
		errors.Is(err, pdfbook.ErrInvalidAssetPath) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrNoIndex) ||
		errors.Is(err, ErrNoCover) ||
		errors.Is(err, ErrNoManifest) ||
		errors.Is(err, ErrUnsupportedCover) ||
		errors.Is(err, ErrInvalidWorkerCount) {
		return ExitUsage
	}

	return ExitGeneral
}
