package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	pdfbook "github.com/alnah/go-pdfbook"
	"github.com/alnah/go-pdfbook/internal/config"
)

// Finding levels, also used as the overall report status.
const (
	levelOK    = "ok"
	levelWarn  = "warn"
	levelError = "error"
)

// finding is one line of the doctor report.
type finding struct {
	Check   string `json:"check"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// doctorReport is what `pdfbook doctor --json` prints.
type doctorReport struct {
	Status   string    `json:"status"`
	Findings []finding `json:"findings"`
}

// doctorProbe carries everything the checks read from the host so tests
// can run them without touching the process environment.
type doctorProbe struct {
	getenv   func(string) string
	lookPath func() (string, bool)
	stat     func(string) (os.FileInfo, error)
	version  func(bin string) (string, error)
}

func hostProbe() *doctorProbe {
	return &doctorProbe{
		getenv:   os.Getenv,
		lookPath: launcher.LookPath,
		stat:     os.Stat,
		version: func(bin string) (string, error) {
			out, err := exec.Command(bin, "--version").Output() // #nosec G204 -- path from launcher or ROD_BROWSER_BIN
			return strings.TrimSpace(string(out)), err
		},
	}
}

// doctorCheck is a named diagnostic. Checks run in table order.
type doctorCheck struct {
	name string
	run  func(p *doctorProbe) []finding
}

var doctorChecks = []doctorCheck{
	{name: "browser", run: checkBrowser},
	{name: "environment", run: checkEnvironment},
	{name: "workdir", run: checkWorkdir},
	{name: "manifest", run: checkManifest},
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Warnings still exit 0.
func runDoctorCmd(args []string, env *Environment) int {
	jsonOutput := false
	for _, arg := range args {
		if arg == "--json" {
			jsonOutput = true
		}
	}

	report := runDoctor(hostProbe())

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		printDoctorReport(env.Stdout, report)
	}

	if report.Status == levelError {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor runs every check and derives the overall status from the
// worst finding.
func runDoctor(p *doctorProbe) *doctorReport {
	report := &doctorReport{Status: levelOK}
	for _, c := range doctorChecks {
		for _, f := range c.run(p) {
			f.Check = c.name
			report.Findings = append(report.Findings, f)
			switch {
			case f.Level == levelError:
				report.Status = levelError
			case f.Level == levelWarn && report.Status == levelOK:
				report.Status = levelWarn
			}
		}
	}
	return report
}

func ok(format string, args ...any) finding {
	return finding{Level: levelOK, Message: fmt.Sprintf(format, args...)}
}

func warn(format string, args ...any) finding {
	return finding{Level: levelWarn, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) finding {
	return finding{Level: levelError, Message: fmt.Sprintf(format, args...)}
}

// checkBrowser locates Chrome. Cover, TOC, references and web pages are
// printed with it, so a missing browser is an error.
func checkBrowser(p *doctorProbe) []finding {
	bin := p.getenv("ROD_BROWSER_BIN")
	if bin == "" {
		var found bool
		if bin, found = p.lookPath(); !found {
			return []finding{fail("Chrome/Chromium not found; install it or set ROD_BROWSER_BIN")}
		}
	}
	if _, err := p.stat(bin); err != nil {
		return []finding{fail("Chrome not found at %s", bin)}
	}

	out := []finding{ok("found at %s", bin)}
	if v, err := p.version(bin); err == nil && v != "" {
		out = append(out, ok("version: %s", v))
	} else {
		out = append(out, warn("could not read Chrome version: %v", err))
	}
	if p.getenv("ROD_NO_SANDBOX") == "1" {
		out = append(out, ok("sandbox: disabled (ROD_NO_SANDBOX=1)"))
	} else {
		out = append(out, ok("sandbox: enabled"))
	}
	return out
}

// checkEnvironment reports the platform and warns when a container or CI
// runner will likely refuse Chrome's sandbox.
func checkEnvironment(p *doctorProbe) []finding {
	out := []finding{ok("platform: %s/%s", runtime.GOOS, runtime.GOARCH)}

	container, hint := containerHint(p)
	if container {
		out = append(out, ok("container: detected (%s)", hint))
	}
	ci := false
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if p.getenv(v) != "" {
			ci = true
			out = append(out, ok("CI: detected (%s)", v))
			break
		}
	}
	if (container || ci) && p.getenv("ROD_NO_SANDBOX") != "1" {
		out = append(out, warn("container/CI detected but ROD_NO_SANDBOX not set; set ROD_NO_SANDBOX=1"))
	}
	return out
}

func containerHint(p *doctorProbe) (bool, string) {
	switch {
	case p.getenv("PDFBOOK_CONTAINER") == "1":
		return true, "PDFBOOK_CONTAINER=1"
	case p.getenv("KUBERNETES_SERVICE_HOST") != "":
		return true, "KUBERNETES_SERVICE_HOST"
	case p.getenv("container") != "":
		return true, "container=" + p.getenv("container")
	}
	if _, err := p.stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	return false, ""
}

// checkWorkdir probes the download cache for writability, counts cached
// documents and summarizes the last page index when one exists.
func checkWorkdir(p *doctorProbe) []finding {
	dir := p.getenv("PDFBOOK_WORKDIR")
	if dir == "" {
		dir = config.DefaultWorkdir
	}
	downloads := filepath.Join(dir, "downloads")

	if err := os.MkdirAll(downloads, dirPermissions); err != nil {
		return []finding{fail("%s: not writable", dir)}
	}
	probe, err := os.CreateTemp(downloads, ".doctor-*")
	if err != nil {
		return []finding{fail("%s: not writable", dir)}
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	cached := 0
	if matches, err := filepath.Glob(filepath.Join(downloads, "*.pdf")); err == nil {
		cached = len(matches)
	}
	out := []finding{ok("%s: writable, %d cached documents", dir, cached)}

	idx, err := pdfbook.ReadPageIndex(filepath.Join(dir, pdfbook.IndexFileName))
	switch {
	case err == nil:
		out = append(out, ok("last build %s: %d pages, %d references",
			idx.BuildID, idx.Layout.TotalPages, len(idx.References)))
	case !errors.Is(err, fs.ErrNotExist):
		out = append(out, warn("page index unreadable: %v", err))
	}
	return out
}

// checkManifest resolves PDFBOOK_CONFIG when it is set.
func checkManifest(p *doctorProbe) []finding {
	name := p.getenv("PDFBOOK_CONFIG")
	if name == "" {
		return []finding{ok("PDFBOOK_CONFIG not set; presets: %s", strings.Join(config.PresetNames(), ", "))}
	}
	m, err := config.LoadManifest(name)
	if err != nil {
		return []finding{fail("%s: %v", name, err)}
	}
	return []finding{ok("%s: %q with %d headings", name, m.Title, len(m.Headings))}
}

// printDoctorReport writes findings grouped by check.
func printDoctorReport(w io.Writer, r *doctorReport) {
	fmt.Fprintln(w, "pdfbook doctor")

	current := ""
	for _, f := range r.Findings {
		if f.Check != current {
			current = f.Check
			fmt.Fprintln(w)
			fmt.Fprintln(w, current)
		}
		fmt.Fprintf(w, "  [%s] %s\n", strings.ToUpper(f.Level), f.Message)
	}
	fmt.Fprintln(w)

	switch r.Status {
	case levelOK:
		fmt.Fprintln(w, "Status: Ready to build")
	case levelWarn:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case levelError:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
