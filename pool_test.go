package pdfbook

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	gomaxprocs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{
			name:    "explicit takes priority",
			workers: 4,
			want:    4,
		},
		{
			name:    "explicit=1 for sequential",
			workers: 1,
			want:    1,
		},
		{
			name:    "explicit can exceed max",
			workers: 20,
			want:    20,
		},
		{
			name:    "zero uses auto calculation",
			workers: 0,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
		{
			name:    "negative uses auto calculation",
			workers: -3,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ResolvePoolSize(tt.workers)
			if got != tt.want {
				t.Errorf("ResolvePoolSize(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

// scriptedFetcher answers from a per-URL script of reasons, one per call;
// an empty reason is success. It sleeps a random short time per call.
type scriptedFetcher struct {
	t       testing.TB
	mu      sync.Mutex
	script  map[string][]FailureReason
	calls   map[string]int
	active  atomic.Int64
	maxSeen atomic.Int64
	jitter  bool
}

func newScriptedFetcher(t testing.TB) *scriptedFetcher {
	return &scriptedFetcher{t: t, script: make(map[string][]FailureReason), calls: make(map[string]int)}
}

func (f *scriptedFetcher) Fetch(_ context.Context, link LinkRecord) ResolvedDocument {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.jitter {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond) // #nosec G404 -- test jitter
	}

	f.mu.Lock()
	call := f.calls[link.NormalizedURL]
	f.calls[link.NormalizedURL]++
	var reason FailureReason
	if steps := f.script[link.NormalizedURL]; call < len(steps) {
		reason = steps[call]
	}
	f.mu.Unlock()

	if reason != "" {
		return ResolvedDocument{Link: link, Err: &FetchError{URL: link.NormalizedURL, Reason: reason}}
	}
	return ResolvedDocument{Link: link, PDF: []byte("%PDF-1.4"), Pages: 1}
}

func (f *scriptedFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func poolLinks(n int) []LinkRecord {
	links := make([]LinkRecord, n)
	for i := range links {
		u := fmt.Sprintf("https://example.com/doc-%d.pdf", i)
		links[i] = LinkRecord{RawURL: u, NormalizedURL: u, Kind: KindDirectPDF, SourceOrder: i}
	}
	return links
}

// ---------------------------------------------------------------------------
// TestFetchAll_Order - Completion order never leaks into the result
// ---------------------------------------------------------------------------

func TestFetchAll_Order(t *testing.T) {
	t.Parallel()

	links := poolLinks(40)
	// Hand the pool a shuffled slice; the result must follow SourceOrder.
	shuffled := append([]LinkRecord(nil), links...)
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) { // #nosec G404 -- test shuffle
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	f := newScriptedFetcher(t)
	f.jitter = true
	cfg := newSettings([]Option{WithWorkers(4)})

	got := fetchAll(context.Background(), f, shuffled, &cfg)

	if len(got) != len(links) {
		t.Fatalf("fetchAll() returned %d documents, want %d", len(got), len(links))
	}
	for i, d := range got {
		if d.Link.SourceOrder != i {
			t.Fatalf("document %d has SourceOrder %d", i, d.Link.SourceOrder)
		}
	}
	if m := f.maxSeen.Load(); m > 4 {
		t.Errorf("saw %d concurrent fetches, want at most 4", m)
	}
}

func TestFetchAll_Empty(t *testing.T) {
	t.Parallel()

	cfg := newSettings(nil)
	if got := fetchAll(context.Background(), newScriptedFetcher(t), nil, &cfg); got != nil {
		t.Errorf("fetchAll(nil) = %v, want nil", got)
	}
}

func TestFetchAll_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newScriptedFetcher(t)
	cfg := newSettings([]Option{WithWorkers(2)})
	got := fetchAll(ctx, f, poolLinks(5), &cfg)

	for _, d := range got {
		if d.OK() {
			t.Errorf("document %d resolved after cancellation", d.Link.SourceOrder)
		}
	}
}

// ---------------------------------------------------------------------------
// TestFetchWithRetry - Only transient failures are repeated
// ---------------------------------------------------------------------------

func TestFetchWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		attempts  int
		script    []FailureReason
		wantOK    bool
		wantCalls int
	}{
		{
			name:      "no retry by default",
			attempts:  1,
			script:    []FailureReason{ReasonTimeout, ""},
			wantOK:    false,
			wantCalls: 1,
		},
		{
			name:      "timeout then success",
			attempts:  3,
			script:    []FailureReason{ReasonTimeout, ""},
			wantOK:    true,
			wantCalls: 2,
		},
		{
			name:      "server errors exhaust attempts",
			attempts:  3,
			script:    []FailureReason{HTTPErrorReason(503), HTTPErrorReason(500), HTTPErrorReason(502)},
			wantOK:    false,
			wantCalls: 3,
		},
		{
			name:      "rate limited then success",
			attempts:  2,
			script:    []FailureReason{HTTPErrorReason(429), ""},
			wantOK:    true,
			wantCalls: 2,
		},
		{
			name:      "auth failure is final",
			attempts:  5,
			script:    []FailureReason{ReasonAuthRequired, ""},
			wantOK:    false,
			wantCalls: 1,
		},
		{
			name:      "not found is final",
			attempts:  5,
			script:    []FailureReason{HTTPErrorReason(404), ""},
			wantOK:    false,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			link := poolLinks(1)[0]
			f := newScriptedFetcher(t)
			f.script[link.NormalizedURL] = tt.script
			cfg := newSettings([]Option{WithRetry(tt.attempts, time.Millisecond)})

			doc := fetchWithRetry(context.Background(), f, link, &cfg)

			if doc.OK() != tt.wantOK {
				t.Errorf("OK() = %v, want %v (err %v)", doc.OK(), tt.wantOK, doc.Err)
			}
			if got := f.callCount(link.NormalizedURL); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reason FailureReason
		want   bool
	}{
		{ReasonTimeout, true},
		{ReasonNetworkError, true},
		{HTTPErrorReason(429), true},
		{HTTPErrorReason(500), true},
		{HTTPErrorReason(404), false},
		{ReasonAuthRequired, false},
		{ReasonInvalidPDF, false},
		{FailureReason("http-error:abc"), false},
	}

	for _, tt := range tests {
		if got := isTransient(tt.reason); got != tt.want {
			t.Errorf("isTransient(%s) = %v, want %v", tt.reason, got, tt.want)
		}
	}
}
