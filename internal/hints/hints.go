// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-pdfbook/internal/fileutil"
)

// inContainer reports whether Docker left its marker file.
var inContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for a browser that failed to start,
// based on the process environment.
func ForBrowserConnect() string {
	return browserHints(os.Getenv, inContainer())
}

func browserHints(getenv func(string) string, container bool) string {
	var hints []string

	sandboxed := getenv("ROD_NO_SANDBOX") != "1"
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if getenv(v) != "" {
			container = true
			break
		}
	}
	if container && sandboxed {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing the per-request timeout.
func ForTimeout() string {
	return format("for slow exports, use --timeout flag")
}

// ForConfigNotFound returns hints for manifest not found errors.
// Suggests --config, a user config path, and the built-in presets.
func ForConfigNotFound(searchedPaths, presets []string) string {
	var hints []string

	hint := "use --config /path/to/book.yaml"
	for _, p := range searchedPaths {
		if strings.Contains(p, "go-pdfbook") {
			hint += " or create " + p
			break
		}
	}
	hints = append(hints, hint)

	if len(presets) > 0 {
		hints = append(hints, "built-in presets: "+strings.Join(presets, ", "))
	}

	return formatHints(hints)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForWorkdir returns hints for cache directory errors.
func ForWorkdir() string {
	return format("use --workdir or PDFBOOK_WORKDIR to pick a writable directory")
}

// ForAuthRequired returns a hint for documents that answered with a sign-in page.
func ForAuthRequired(count int) string {
	if count == 0 {
		return ""
	}
	return format("share restricted documents as \"anyone with the link\" and rerun")
}

// ForCoverImage returns hints for unreadable cover files.
func ForCoverImage() string {
	return format("supported cover formats: PDF, PNG, JPG, GIF, WEBP, SVG")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
