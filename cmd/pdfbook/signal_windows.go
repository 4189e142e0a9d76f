//go:build windows

package main

import (
	"context"
	"os"
	"os/signal"
)

// buildSignals stop a build. Windows only delivers Ctrl-C to console apps.
var buildSignals = []os.Signal{os.Interrupt}

// cancelOnSignal derives the build context. Pending fetches and browser
// renders observe its cancellation and the partial book is never written.
func cancelOnSignal(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, buildSignals...)
}
