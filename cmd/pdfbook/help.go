package main

import (
	"fmt"
	"io"

	"github.com/alnah/go-pdfbook/internal/config"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pdfbook <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  build      Compile the documents linked from a seed PDF into one book")
	fmt.Fprintln(w, "  presets    List built-in manifests")
	fmt.Fprintln(w, "  doctor     Check browser and environment")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'pdfbook help <command>' for details on a specific command.")
}

// printBuildUsage prints usage for the build command.
func printBuildUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pdfbook build <index.pdf> --cover <file> --config <name> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Fetch every document linked from the seed PDF and merge them behind a")
	fmt.Fprintln(w, "cover, an optional table of contents, and a references section listing")
	fmt.Fprintln(w, "links that could not be fetched. Failed links do not fail the build.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -i, --index <path>        Seed PDF (or first argument)")
	fmt.Fprintln(w, "      --cover <path>        Cover PDF or image (png, jpg, gif, webp, svg)")
	fmt.Fprintln(w, "      --manifest <csv>      Links to fetch first (title,url,order columns)")
	fmt.Fprintln(w, "  -c, --config <name>       Manifest preset name or YAML path")
	fmt.Fprintln(w, "  -o, --output <path>       Output PDF (default: manifest outputFilename)")
	fmt.Fprintln(w, "      --workdir <dir>       Download cache and page index directory")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Fetching:")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-request timeout (default 60s)")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel fetches (0 = auto)")
	fmt.Fprintln(w, "      --retries <n>         Attempts per document for transient failures")
	fmt.Fprintln(w, "      --max-folder-depth <n> Nested Drive folder limit (default 3)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Book:")
	fmt.Fprintln(w, "      --add-toc             Insert a table of contents after the cover")
	fmt.Fprintln(w, "      --toc-title <s>       Table of contents heading")
	fmt.Fprintln(w, "      --title <s>           Title printed on an image cover")
	fmt.Fprintln(w, "      --number-all-pages    Number cover and TOC pages too")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Page (generated pages only):")
	fmt.Fprintln(w, "  -p, --page-size <s>       Page size: letter, a4, legal")
	fmt.Fprintln(w, "      --orientation <s>     Orientation: portrait, landscape")
	fmt.Fprintln(w, "      --margin <f>          Margin in inches (0.25-3.0)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Styling:")
	fmt.Fprintln(w, "      --style <name>        CSS style for generated pages")
	fmt.Fprintln(w, "      --asset-path <dir>    Custom templates and styles")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Log every build stage")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  PDFBOOK_CONFIG, PDFBOOK_WORKDIR, PDFBOOK_TIMEOUT, PDFBOOK_WORKERS,")
	fmt.Fprintln(w, "  PDFBOOK_RETRIES, PDFBOOK_PAGE_SIZE (flags > env > manifest)")
}

// printPresets lists built-in manifests.
func printPresets(w io.Writer) {
	for _, name := range config.PresetNames() {
		m, _ := config.Preset(name)
		fmt.Fprintf(w, "%-12s %s (%d headings)\n", name, m.Title, len(m.Headings))
	}
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "build":
		printBuildUsage(env.Stdout)
	case "presets":
		fmt.Fprintln(env.Stdout, "Usage: pdfbook presets")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "List built-in manifests usable with --config.")
	case "doctor":
		fmt.Fprintln(env.Stdout, "Usage: pdfbook doctor [--json]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Check that Chrome can be found and the environment is usable.")
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: pdfbook version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: pdfbook help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
