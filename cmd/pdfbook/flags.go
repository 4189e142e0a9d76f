package main

import (
	"os"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// inputFlags holds the book's input and output locations.
type inputFlags struct {
	index   string
	cover   string
	links   string
	output  string
	workdir string
}

// fetchFlags holds network flags. Zero values defer to env and config.
type fetchFlags struct {
	timeout        string
	workers        int
	retries        int
	maxFolderDepth int
}

// pageFlags holds page layout flags for generated pages.
type pageFlags struct {
	size        string
	orientation string
	margin      float64
}

// bookFlags holds flags changing the book's structure.
type bookFlags struct {
	addTOC         bool
	numberAllPages bool
	tocTitle       string
	title          string
}

// assetFlags holds asset-related flags.
type assetFlags struct {
	style     string
	assetPath string
}

// buildFlags holds all flags for the build command.
type buildFlags struct {
	common commonFlags
	input  inputFlags
	fetch  fetchFlags
	page   pageFlags
	book   bookFlags
	assets assetFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "manifest preset name or YAML path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log every build stage")
}

// addInputFlags adds input and output flags to a FlagSet.
func addInputFlags(fs *flag.FlagSet, f *inputFlags) {
	fs.StringVarP(&f.index, "index", "i", "", "seed PDF with the links (or first argument)")
	fs.StringVar(&f.cover, "cover", "", "cover PDF or image")
	fs.StringVar(&f.links, "manifest", "", "CSV of title,url,order rows fetched before the seed's links")
	fs.StringVarP(&f.output, "output", "o", "", "output PDF path")
	fs.StringVar(&f.workdir, "workdir", "", "cache and page index directory")
}

// addFetchFlags adds network flags to a FlagSet.
func addFetchFlags(fs *flag.FlagSet, f *fetchFlags) {
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-request timeout (e.g., 60s, 2m)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel fetches (0 = auto)")
	fs.IntVar(&f.retries, "retries", 0, "attempts per document for transient failures (1 = no retry)")
	fs.IntVar(&f.maxFolderDepth, "max-folder-depth", 0, "nested Drive folder limit (0 = default 3)")
}

// addPageFlags adds page layout flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.size, "page-size", "p", "", "page size: letter, a4, legal")
	fs.StringVar(&f.orientation, "orientation", "", "page orientation: portrait, landscape")
	fs.Float64Var(&f.margin, "margin", 0, "page margin in inches (0.25-3.0)")
}

// addBookFlags adds book structure flags to a FlagSet.
func addBookFlags(fs *flag.FlagSet, f *bookFlags) {
	fs.BoolVar(&f.addTOC, "add-toc", false, "insert a table of contents after the cover")
	fs.BoolVar(&f.numberAllPages, "number-all-pages", false, "number cover and TOC pages too")
	fs.StringVar(&f.tocTitle, "toc-title", "", "table of contents heading")
	fs.StringVar(&f.title, "title", "", "book title printed on an image cover")
}

// addAssetFlags adds asset-related flags to a FlagSet.
func addAssetFlags(fs *flag.FlagSet, f *assetFlags) {
	fs.StringVar(&f.style, "style", "", "CSS style name for generated pages")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory")
}

// parseBuildFlags parses build command flags and returns positional args.
func parseBuildFlags(args []string) (*buildFlags, []string, error) {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	f := &buildFlags{}

	addCommonFlags(fs, &f.common)
	addInputFlags(fs, &f.input)
	addFetchFlags(fs, &f.fetch)
	addPageFlags(fs, &f.page)
	addBookFlags(fs, &f.book)
	addAssetFlags(fs, &f.assets)

	fs.Usage = func() { printBuildUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}
