package cronrunner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunner_SkipsWhileRunning(t *testing.T) {
	r := New(nil, context.Background())
	var (
		started atomic.Int32
		release = make(chan struct{})
	)
	if _, err := r.Add("@every 1s", func(context.Context) {
		started.Add(1)
		<-release
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.Start()
	// Long enough for at least two due runs while the first is blocked.
	time.Sleep(2500 * time.Millisecond)
	close(release)
	r.Stop()

	if got := started.Load(); got != 1 {
		t.Fatalf("started=%d want=1", got)
	}
}

func TestRunner_RecoversPanics(t *testing.T) {
	r := New(nil, context.Background())
	var runs atomic.Int32
	if _, err := r.Add("@every 1s", func(context.Context) {
		runs.Add(1)
		panic("boom")
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.Start()
	time.Sleep(2600 * time.Millisecond)
	r.Stop()
	if runs.Load() < 2 {
		t.Fatalf("runs=%d want>=2 after panic", runs.Load())
	}
}

func TestRunner_RejectsBadSpec(t *testing.T) {
	r := New(nil, context.Background())
	if _, err := r.Add("not a spec", func(context.Context) {}); err == nil {
		t.Fatalf("expected error")
	}
}
