package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	pdfbook "github.com/alnah/go-pdfbook"
	"github.com/alnah/go-pdfbook/internal/config"
	"github.com/alnah/go-pdfbook/internal/fileutil"
	"github.com/alnah/go-pdfbook/internal/hints"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage              = errors.New("invalid usage")
	ErrNoIndex            = errors.New("no seed PDF specified")
	ErrNoCover            = errors.New("no cover specified")
	ErrNoManifest         = errors.New("no manifest specified")
	ErrReadIndex          = errors.New("failed to read seed PDF")
	ErrReadCover          = errors.New("failed to read cover")
	ErrReadLinks          = errors.New("failed to read link manifest")
	ErrUnsupportedCover   = errors.New("unsupported cover format")
	ErrWorkdir            = errors.New("failed to prepare workdir")
	ErrWritePDF           = errors.New("failed to write PDF file")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// coverImageExts are the cover formats printed onto a page by the browser.
var coverImageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true,
}

// buildPlan is everything runBuild resolved before starting the build.
type buildPlan struct {
	manifest *config.Manifest
	book     *pdfbook.Manifest
	input    pdfbook.Input
	output   string
	workdir  string
	timeout  time.Duration
}

// runBuild builds one book. Failed links are reported but do not fail the
// command once the output is written.
func runBuild(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseBuildFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if flags.input.index == "" && len(positional) > 0 {
		flags.input.index = positional[0]
		positional = positional[1:]
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: unexpected arguments: %s", ErrUsage, strings.Join(positional, " "))
	}
	if err := validateWorkers(flags.fetch.workers); err != nil {
		return err
	}

	warnUnknownEnvVars(env.Stderr)
	envCfg := loadEnvConfig()

	plan, err := prepareBuild(flags, envCfg)
	if err != nil {
		return err
	}

	cache, err := pdfbook.NewDirCache(plan.workdir)
	if err != nil {
		return fmt.Errorf("%w: %v%s", ErrWorkdir, err, hints.ForWorkdir())
	}

	logger := newLogger(env.Stderr, flags.common.quiet, flags.common.verbose)
	builder, err := env.NewBuilder(builderOptions(plan, cache, logger)...)
	if err != nil {
		return err
	}
	defer func() { _ = builder.Close() }()

	start := env.Now()
	res, err := builder.Build(ctx, plan.input)
	if err != nil {
		return withHints(fmt.Errorf("building %s: %w", plan.manifest.Name, err))
	}

	if err := writeOutput(plan.output, res.PDF); err != nil {
		return err
	}

	indexPath := filepath.Join(plan.workdir, pdfbook.IndexFileName)
	if err := pdfbook.WritePageIndex(indexPath, pdfbook.NewPageIndex(plan.book, res, env.Now())); err != nil {
		fmt.Fprintf(env.Stderr, "warning: %v\n", err)
	}

	printSummary(env.Stdout, plan, res, env.Now().Sub(start), flags.common)
	if flags.common.verbose {
		fmt.Fprintf(env.Stdout, "Download cache: %s\n", cache.Dir())
	}
	return nil
}

// prepareBuild loads the manifest, layers env and flags over it and reads
// the seed and cover.
func prepareBuild(flags *buildFlags, envCfg *envConfig) (*buildPlan, error) {
	if flags.input.index == "" {
		return nil, ErrNoIndex
	}
	if flags.input.cover == "" {
		return nil, ErrNoCover
	}

	m, err := loadManifest(flags.common.config, envCfg)
	if err != nil {
		return nil, err
	}
	applyEnvConfig(envCfg, m)
	mergeFlags(flags, m)
	if err := m.Validate(); err != nil {
		return nil, err
	}

	timeout, err := resolveTimeout(flags.fetch.timeout, envCfg.Timeout, m)
	if err != nil {
		return nil, err
	}

	seed, err := os.ReadFile(flags.input.index) // #nosec G304 -- user-provided path
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadIndex, err)
	}
	cover, err := readCover(flags.input.cover)
	if err != nil {
		return nil, err
	}
	links, err := readLinkManifest(flags.input.links)
	if err != nil {
		return nil, err
	}

	book := toBookManifest(m)
	if err := book.Validate(); err != nil {
		return nil, err
	}

	return &buildPlan{
		manifest: m,
		book:     book,
		input: pdfbook.Input{
			IndexPDF: seed,
			Cover:    cover,
			Manifest: book,
			AddTOC:   flags.book.addTOC,
			Links:    links,
		},
		output:  resolveOutputPath(flags.input.output, m),
		workdir: resolveWorkdir(flags.input.workdir, m),
		timeout: timeout,
	}, nil
}

// readLinkManifest reads the optional CSV link manifest.
func readLinkManifest(path string) ([]pdfbook.ManifestLink, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path) // #nosec G304 -- user-provided path
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadLinks, err)
	}
	defer func() { _ = f.Close() }()

	return pdfbook.ReadLinkManifest(f)
}

// loadManifest resolves the manifest name: flag, then PDFBOOK_CONFIG.
func loadManifest(flagConfig string, envCfg *envConfig) (*config.Manifest, error) {
	name := flagConfig
	if name == "" {
		name = envCfg.ConfigPath
	}
	if name == "" {
		return nil, fmt.Errorf("%w%s", ErrNoManifest, hints.ForConfigNotFound(nil, config.PresetNames()))
	}

	m, err := config.LoadManifest(name)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("loading manifest: %w%s", err, hints.ForConfigNotFound(config.SearchPaths(name), config.PresetNames()))
		}
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	return m, nil
}

// mergeFlags merges CLI flags into the manifest. CLI values override.
func mergeFlags(flags *buildFlags, m *config.Manifest) {
	if flags.input.workdir != "" {
		m.Workdir = flags.input.workdir
	}
	if flags.fetch.workers > 0 {
		m.Fetch.Workers = flags.fetch.workers
	}
	if flags.fetch.retries > 0 {
		m.Fetch.Retries = flags.fetch.retries
	}
	if flags.fetch.maxFolderDepth > 0 {
		m.Fetch.MaxFolderDepth = flags.fetch.maxFolderDepth
	}
	if flags.page.size != "" {
		m.Page.Size = flags.page.size
	}
	if flags.page.orientation != "" {
		m.Page.Orientation = flags.page.orientation
	}
	if flags.page.margin > 0 {
		m.Page.Margin = flags.page.margin
	}
	if flags.book.numberAllPages {
		m.NumberAllPages = true
	}
	if flags.book.tocTitle != "" {
		m.TOCTitle = flags.book.tocTitle
	}
	if flags.book.title != "" {
		m.Title = flags.book.title
	}
	if flags.assets.style != "" {
		m.Assets.Style = flags.assets.style
	}
	if flags.assets.assetPath != "" {
		m.Assets.BasePath = flags.assets.assetPath
	}
}

// resolveTimeout picks the per-request timeout: flag, env, then manifest.
// Returns 0 to keep the library default.
func resolveTimeout(flagTimeout string, envTimeout time.Duration, m *config.Manifest) (time.Duration, error) {
	if flagTimeout != "" {
		d, err := time.ParseDuration(flagTimeout)
		if err != nil {
			return 0, fmt.Errorf("%w: --timeout: %v", ErrUsage, err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("%w: --timeout must be positive, got %s", ErrUsage, flagTimeout)
		}
		return d, nil
	}
	if envTimeout > 0 {
		return envTimeout, nil
	}
	return m.Fetch.TimeoutDuration()
}

// readCover loads a PDF cover, or checks that an image cover exists.
func readCover(path string) (pdfbook.Cover, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		data, err := os.ReadFile(path) // #nosec G304 -- user-provided path
		if err != nil {
			return pdfbook.Cover{}, fmt.Errorf("%w: %w", ErrReadCover, err)
		}
		return pdfbook.Cover{PDF: data}, nil
	case coverImageExts[ext]:
		abs, err := filepath.Abs(path)
		if err != nil {
			return pdfbook.Cover{}, fmt.Errorf("%w: %w", ErrReadCover, err)
		}
		if !fileutil.FileExists(abs) {
			return pdfbook.Cover{}, fmt.Errorf("%w: %s: %w", ErrReadCover, path, os.ErrNotExist)
		}
		return pdfbook.Cover{ImagePath: abs}, nil
	default:
		return pdfbook.Cover{}, fmt.Errorf("%w: %q%s", ErrUnsupportedCover, ext, hints.ForCoverImage())
	}
}

// toBookManifest converts the YAML manifest into the library's manifest.
func toBookManifest(m *config.Manifest) *pdfbook.Manifest {
	book := &pdfbook.Manifest{
		Name:               m.Name,
		Title:              m.Title,
		OutputFilename:     m.OutputFilename,
		Workdir:            m.Workdir,
		PredefinedHeadings: m.TrimmedHeadings(),
		SectionHeadings:    m.SectionHeadings,
		TOCTitle:           m.TOCTitle,
		ReferencesTitle:    m.ReferencesTitle,
	}
	if m.Page != (config.PageConfig{}) {
		book.Page = &pdfbook.PageSettings{
			Size:        m.Page.Size,
			Orientation: m.Page.Orientation,
			Margin:      m.Page.Margin,
		}
	}
	return book
}

// resolveOutputPath picks the output file: flag, manifest, then <name>.pdf.
func resolveOutputPath(flagOutput string, m *config.Manifest) string {
	if flagOutput != "" {
		return flagOutput
	}
	if m.OutputFilename != "" {
		return m.OutputFilename
	}
	return fileutil.SafeName(m.Name) + ".pdf"
}

// resolveWorkdir picks the cache directory: flag or env (already merged
// into the manifest), manifest, then the default.
func resolveWorkdir(flagWorkdir string, m *config.Manifest) string {
	if flagWorkdir != "" {
		return flagWorkdir
	}
	if m.Workdir != "" {
		return m.Workdir
	}
	return config.DefaultWorkdir
}

// validateWorkers rejects negative worker counts and values above the cap.
func validateWorkers(n int) error {
	if n < 0 || n > config.MaxWorkers {
		return fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidWorkerCount, n, config.MaxWorkers)
	}
	return nil
}

// builderOptions translates the plan into library options.
func builderOptions(plan *buildPlan, cache pdfbook.Cache, logger *slog.Logger) []pdfbook.Option {
	m := plan.manifest
	opts := []pdfbook.Option{
		pdfbook.WithLogger(logger),
		pdfbook.WithCache(cache),
		pdfbook.WithWorkers(m.Fetch.Workers),
		pdfbook.WithMaxFolderDepth(m.Fetch.MaxFolderDepth),
		pdfbook.WithNumberAllPages(m.NumberAllPages),
		pdfbook.WithAssetPath(m.Assets.BasePath),
		pdfbook.WithStyle(m.Assets.Style),
	}
	if plan.timeout > 0 {
		opts = append(opts, pdfbook.WithTimeout(plan.timeout))
	}
	if m.Fetch.Retries > 1 {
		opts = append(opts, pdfbook.WithRetry(m.Fetch.Retries, pdfbook.DefaultRetryDelay))
	}
	return opts
}

// newLogger returns the build logger: stage lines and failures at Debug
// when verbose, warnings otherwise, nothing when quiet.
func newLogger(w io.Writer, quiet, verbose bool) *slog.Logger {
	if quiet {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// writeOutput writes the book, creating the parent directory if needed.
func writeOutput(path string, pdf []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return fmt.Errorf("%w: %v%s", ErrWritePDF, err, hints.ForOutputDirectory())
		}
	}
	if err := fileutil.WriteFileAtomic(path, pdf, filePermissions); err != nil {
		return fmt.Errorf("%w: %v%s", ErrWritePDF, err, hints.ForOutputDirectory())
	}
	return nil
}

// withHints appends hints for errors users can act on.
func withHints(err error) error {
	switch {
	case errors.Is(err, pdfbook.ErrBrowserConnect):
		return fmt.Errorf("%w%s", err, hints.ForBrowserConnect())
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w%s", err, hints.ForTimeout())
	}
	return err
}

// printSummary reports the written book and every failed link.
func printSummary(w io.Writer, plan *buildPlan, res *pdfbook.Result, elapsed time.Duration, common commonFlags) {
	failed := res.Failed()
	if common.quiet {
		return
	}

	fmt.Fprintf(w, "Wrote %s (%d pages, %d documents, %d failed) in %s\n",
		plan.output, res.Layout.TotalPages, len(res.Documents)-len(failed), len(failed), elapsed.Round(time.Millisecond))
	if common.verbose {
		fmt.Fprintf(w, "Page index: %s\n", filepath.Join(plan.workdir, pdfbook.IndexFileName))
	}

	if len(failed) == 0 {
		return
	}
	fmt.Fprintln(w, "Failed links:")
	auth := 0
	for _, d := range failed {
		fmt.Fprintf(w, "  [%s] %s\n", d.Err.Reason, d.Link.RawURL)
		if d.Err.Reason == pdfbook.ReasonAuthRequired {
			auth++
		}
	}
	if h := hints.ForAuthRequired(auth); h != "" {
		fmt.Fprintln(w, strings.TrimPrefix(h, "\n"))
	}
}
