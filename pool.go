package pdfbook

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/avast/retry-go/v4"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent fetches; web pages each hold a browser tab.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// ResolvePoolSize determines the number of fetch workers.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by CLIs.
func ResolvePoolSize(workers int) int {
	// Explicit value takes priority
	if workers > 0 {
		return workers
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}

// documentFetcher is the single-link operation run by the pool.
type documentFetcher interface {
	Fetch(ctx context.Context, link LinkRecord) ResolvedDocument
}

// Compile-time interface check.
var _ documentFetcher = (*Fetcher)(nil)

// fetchAll fetches links with a bounded number of workers. Results are
// written by index and then sorted by SourceOrder, so completion order
// never shows in the output.
func fetchAll(ctx context.Context, f documentFetcher, links []LinkRecord, cfg *settings) []ResolvedDocument {
	if len(links) == 0 {
		return nil
	}

	concurrency := ResolvePoolSize(cfg.workers)
	if concurrency > len(links) {
		concurrency = len(links)
	}

	results := make([]ResolvedDocument, len(links))
	var wg sync.WaitGroup
	jobs := make(chan int, len(links))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results[idx] = ResolvedDocument{
						Link: links[idx],
						Err:  &FetchError{URL: links[idx].NormalizedURL, Reason: ReasonTimeout, Err: err},
					}
					continue
				}
				results[idx] = fetchWithRetry(ctx, f, links[idx], cfg)
			}
		}()
	}

	for i := range links {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Link.SourceOrder < results[j].Link.SourceOrder
	})
	return results
}

// errRetryable marks a failed attempt that may succeed when repeated.
var errRetryable = errors.New("retryable fetch failure")

// fetchWithRetry runs f.Fetch up to cfg.attempts times. Only transient
// failures are repeated: timeouts, network errors, 429 and 5xx answers.
// The last attempt's document is returned either way.
func fetchWithRetry(ctx context.Context, f documentFetcher, link LinkRecord, cfg *settings) ResolvedDocument {
	if cfg.attempts <= 1 {
		return f.Fetch(ctx, link)
	}

	var doc ResolvedDocument
	_ = retry.Do(
		func() error {
			doc = f.Fetch(ctx, link)
			if doc.OK() {
				return nil
			}
			if isTransient(doc.Err.Reason) {
				return errRetryable
			}
			return retry.Unrecoverable(doc.Err)
		},
		retry.Context(ctx),
		retry.Attempts(uint(cfg.attempts)), // #nosec G115 -- attempts >= 1
		retry.Delay(cfg.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, _ error) {
			cfg.logger.Debug("retrying fetch", "url", link.NormalizedURL, "attempt", n+2, "reason", doc.Err.Reason)
		}),
	)
	return doc
}

// isTransient reports whether a failure reason is worth retrying.
func isTransient(r FailureReason) bool {
	switch r {
	case ReasonTimeout, ReasonNetworkError:
		return true
	}
	if !r.IsHTTPError() {
		return false
	}
	code, err := strconv.Atoi(strings.TrimPrefix(string(r), httpErrorPrefix))
	if err != nil {
		return false
	}
	return code == 429 || code >= 500
}
