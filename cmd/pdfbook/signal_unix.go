//go:build !windows

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// buildSignals stop a build: Ctrl-C, a supervisor's SIGTERM, or the
// terminal going away mid-download.
var buildSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

// cancelOnSignal derives the build context. Pending fetches and browser
// renders observe its cancellation and the partial book is never written.
func cancelOnSignal(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, buildSignals...)
}
