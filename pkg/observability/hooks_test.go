package observability

import (
	"context"
	"testing"
	"time"
)

type countingEngineHooks struct {
	NoopEngineHooks
	transforms int
	clusters   int
	layouts    int
}

func (h *countingEngineHooks) OnTransformStart(context.Context, int, int) { h.transforms++ }
func (h *countingEngineHooks) OnClusterApplied(context.Context, string, int, int) {
	h.clusters++
}
func (h *countingEngineHooks) OnLayoutComplete(context.Context, int, int, time.Duration, error) {
	h.layouts++
}

func TestDefaultHooksAreNoops(t *testing.T) {
	Reset()

	// Must not panic.
	ctx := context.Background()
	Engine().OnTransformStart(ctx, 10, 20)
	Engine().OnClusterApplied(ctx, "p", 60, 5)
	Engine().OnLayoutComplete(ctx, 10, 9, time.Millisecond, nil)
	Cache().OnCacheHit(ctx, "layout")
	Cache().OnCacheMiss(ctx, "layout")
	Cache().OnCacheSet(ctx, "layout", 128)
	Store().OnGet(ctx, "id", true, time.Millisecond)
	Store().OnError(ctx, "get", "id", nil)
}

func TestSetAndResetHooks(t *testing.T) {
	t.Cleanup(Reset)

	h := &countingEngineHooks{}
	SetEngineHooks(h)

	ctx := context.Background()
	Engine().OnTransformStart(ctx, 1, 1)
	Engine().OnTransformStart(ctx, 1, 1)
	Engine().OnClusterApplied(ctx, "p", 60, 5)
	Engine().OnLayoutComplete(ctx, 1, 0, 0, nil)

	if h.transforms != 2 {
		t.Errorf("transforms = %d, want 2", h.transforms)
	}
	if h.clusters != 1 {
		t.Errorf("clusters = %d, want 1", h.clusters)
	}
	if h.layouts != 1 {
		t.Errorf("layouts = %d, want 1", h.layouts)
	}

	Reset()
	Engine().OnTransformStart(ctx, 1, 1)
	if h.transforms != 2 {
		t.Errorf("transforms = %d after Reset(), want 2", h.transforms)
	}
}

func TestSetHooksIgnoresNil(t *testing.T) {
	t.Cleanup(Reset)

	h := &countingEngineHooks{}
	SetEngineHooks(h)
	SetEngineHooks(nil)

	Engine().OnTransformStart(context.Background(), 1, 1)
	if h.transforms != 1 {
		t.Errorf("transforms = %d, want 1 (nil registration ignored)", h.transforms)
	}
}
