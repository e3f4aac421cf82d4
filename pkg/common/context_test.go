package common

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalContext(t *testing.T) {
	for _, sig := range []os.Signal{os.Interrupt, syscall.SIGTERM} {
		t.Run(sig.String(), func(t *testing.T) {
			ctx, cancel, channel := createSignalContext(context.Background())
			defer cancel()
			assert.NoError(t, ctx.Err())

			channel <- sig
			select {
			case <-time.After(1 * time.Second):
				t.Fatal("context not canceled")
			case <-ctx.Done():
			}
			assert.Equal(t, context.Canceled, ctx.Err())
		})
	}
}

func TestCreateSignalContext(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	ctx, cancel := CreateSignalContext(parent)
	defer cancel()
	assert.NoError(t, ctx.Err())

	parentCancel()
	select {
	case <-time.After(1 * time.Second):
		t.Fatal("context not canceled")
	case <-ctx.Done():
	}
}
