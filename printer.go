package pdfbook

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-pdfbook/internal/fileutil"
	"github.com/alnah/go-pdfbook/internal/pipeline"
	"github.com/alnah/go-pdfbook/internal/process"
)

// htmlPrinter prints a complete HTML document to PDF bytes.
type htmlPrinter interface {
	PrintHTML(ctx context.Context, html string, page *PageSettings) ([]byte, error)
	Close() error
}

// Compile-time interface check.
var _ htmlPrinter = (*rodPrinter)(nil)

// rodPrinter implements htmlPrinter with headless Chrome via go-rod.
// Rod downloads Chromium on first run if none is found. One browser is
// shared by all pages; it starts lazily on the first print.
type rodPrinter struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
}

func newRodPrinter(timeout time.Duration) *rodPrinter {
	return &rodPrinter{timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser.
func (p *rodPrinter) ensureBrowser() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		return p.browser, nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	p.launcher = l
	p.browser = browser
	return browser, nil
}

// Close releases the browser and kills its process tree.
func (p *rodPrinter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.browser != nil {
		err = p.browser.Close()
		p.browser = nil
	}
	if p.launcher != nil {
		process.KillProcessGroup(p.launcher.PID())
		p.launcher.Kill()
		p.launcher.Cleanup()
		p.launcher = nil
	}
	return err
}

// PrintHTML writes html to a temporary file, opens it in headless Chrome
// and prints it with the paper size and margins of page.
// Returns explicit errors instead of panicking when browser operations fail.
func (p *rodPrinter) PrintHTML(ctx context.Context, html string, page *PageSettings) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(html, "html")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	defer cleanup()

	fileURL, err := pipeline.FileURL(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	browser, err := p.ensureBrowser()
	if err != nil {
		return nil, err
	}

	tab, err := browser.Page(proto.TargetCreateTarget{URL: fileURL})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = tab.Close() }()

	// Wait for page to load with timeout from context or default
	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	// Bound every CDP call to ctx so cancellation aborts a stuck print.
	bound := tab.Context(ctx)

	if err := bound.Timeout(timeout).WaitLoad(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := bound.PDF(printOptions(page))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return data, nil
}

// printOptions builds Chrome print settings from page settings.
func printOptions(page *PageSettings) *proto.PagePrintToPDF {
	width, height := page.dimensions()
	margin := page.margin()

	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(width),
		PaperHeight:     floatPtr(height),
		MarginTop:       floatPtr(margin),
		MarginBottom:    floatPtr(margin),
		MarginLeft:      floatPtr(margin),
		MarginRight:     floatPtr(margin),
		PrintBackground: true,
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
