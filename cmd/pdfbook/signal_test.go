package main

import (
	"context"
	"os"
	"slices"
	"testing"
)

// ---------------------------------------------------------------------------
// TestCancelOnSignal - Build cancellation without OS signals
// ---------------------------------------------------------------------------

func TestCancelOnSignal(t *testing.T) {
	t.Parallel()

	t.Run("stop cancels", func(t *testing.T) {
		t.Parallel()

		ctx, stop := cancelOnSignal(context.Background())
		select {
		case <-ctx.Done():
			t.Fatal("context cancelled before stop()")
		default:
		}

		stop()
		<-ctx.Done()
	})

	t.Run("parent cancellation propagates", func(t *testing.T) {
		t.Parallel()

		parent, cancel := context.WithCancel(context.Background())
		ctx, stop := cancelOnSignal(parent)
		defer stop()

		cancel()
		<-ctx.Done()
		if ctx.Err() != context.Canceled {
			t.Errorf("ctx.Err() = %v, want context.Canceled", ctx.Err())
		}
	})

	t.Run("interrupt always stops a build", func(t *testing.T) {
		t.Parallel()

		if !slices.Contains(buildSignals, os.Interrupt) {
			t.Errorf("buildSignals = %v, want os.Interrupt included", buildSignals)
		}
	})
}
