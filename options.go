package pdfbook

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Defaults for build settings.
const (
	DefaultFetchTimeout   = 60 * time.Second
	DefaultRenderTimeout  = 30 * time.Second
	DefaultMaxFolderDepth = 3
	DefaultRetryDelay     = 2 * time.Second
	defaultUserAgent      = "Mozilla/5.0 (compatible; go-pdfbook)"
)

// Option configures a Builder, Fetcher or FolderExpander.
type Option func(*settings)

// settings holds the configuration shared by the build components.
type settings struct {
	logger         *slog.Logger
	client         *http.Client
	userAgent      string
	timeout        time.Duration // per network request
	renderTimeout  time.Duration // per printed page
	workers        int           // 0 = ResolvePoolSize default
	attempts       int           // 1 = fetch once
	retryDelay     time.Duration
	cache          Cache
	maxFolderDepth int
	numberAllPages bool
	assetPath      string
	style          string

	// Test seams; nil means production implementations.
	printer  htmlPrinter
	renderer sectionRenderer
	web      webPageConverter
}

func defaultSettings() settings {
	return settings{
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		client:         &http.Client{},
		userAgent:      defaultUserAgent,
		timeout:        DefaultFetchTimeout,
		renderTimeout:  DefaultRenderTimeout,
		attempts:       1,
		retryDelay:     DefaultRetryDelay,
		maxFolderDepth: DefaultMaxFolderDepth,
	}
}

func newSettings(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHTTPClient sets the client used for every network request.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		if c != nil {
			s.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header sent with requests.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request network timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("pdfbook: WithTimeout duration must be positive")
	}
	return func(s *settings) {
		s.timeout = d
	}
}

// WithRenderTimeout sets the per-page browser printing timeout.
// Panics if d <= 0.
func WithRenderTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("pdfbook: WithRenderTimeout duration must be positive")
	}
	return func(s *settings) {
		s.renderTimeout = d
	}
}

// WithWorkers bounds concurrent fetches. Values <= 0 select ResolvePoolSize.
func WithWorkers(n int) Option {
	return func(s *settings) {
		s.workers = n
	}
}

// WithRetry retries a failed fetch up to attempts times in total, waiting
// delay between attempts. Only timeouts, network errors, 429 and 5xx answers are
// retried. attempts <= 1 disables retrying.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *settings) {
		if attempts < 1 {
			attempts = 1
		}
		s.attempts = attempts
		if delay >= 0 {
			s.retryDelay = delay
		}
	}
}

// WithCache sets the document cache consulted before network I/O.
func WithCache(c Cache) Option {
	return func(s *settings) {
		s.cache = c
	}
}

// WithMaxFolderDepth bounds Drive folder recursion. The top folder is depth 1.
func WithMaxFolderDepth(depth int) Option {
	return func(s *settings) {
		if depth > 0 {
			s.maxFolderDepth = depth
		}
	}
}

// WithNumberAllPages numbers cover and TOC pages too.
func WithNumberAllPages(enabled bool) Option {
	return func(s *settings) {
		s.numberAllPages = enabled
	}
}

// WithAssetPath loads templates and styles from dir, falling back to the
// embedded assets for anything missing.
func WithAssetPath(dir string) Option {
	return func(s *settings) {
		s.assetPath = dir
	}
}

// WithStyle selects the CSS style by name. Default "book".
func WithStyle(name string) Option {
	return func(s *settings) {
		s.style = name
	}
}
