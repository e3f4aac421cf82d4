package common

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func createSignalContext(parent context.Context) (context.Context, func(), chan os.Signal) {
	ctx, cancel := context.WithCancel(parent)

	// trap Ctrl+C and SIGTERM and call cancel on the context
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-c:
			Logger(ctx).Debugf("Received %v, canceling", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(c)
		cancel()
	}, c
}

// CreateSignalContext returns a context that is canceled on SIGINT or
// SIGTERM, so in-flight downloads are aborted and temp files removed.
func CreateSignalContext(parent context.Context) (context.Context, func()) {
	ctx, cancel, _ := createSignalContext(parent)
	return ctx, cancel
}
