package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestLocalBackendFixedWindow(t *testing.T) {
	b := NewLocalBackend(5, time.Minute, 0)
	defer b.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d, err := b.Allow(ctx, "user-1", t0.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !d.Admitted {
			t.Fatalf("request %d rejected, want admitted", i+1)
		}
		if want := 4 - i; d.Remaining != want {
			t.Errorf("request %d remaining = %d, want %d", i+1, d.Remaining, want)
		}
		if !d.ResetAt.Equal(t0.Add(time.Minute)) {
			t.Errorf("ResetAt = %v, want %v", d.ResetAt, t0.Add(time.Minute))
		}
	}

	d, _ := b.Allow(ctx, "user-1", t0.Add(10*time.Second))
	if d.Admitted {
		t.Fatal("6th request within the window was admitted")
	}
	if d.Remaining != 0 || d.Limit != 5 || d.Backend != BackendLocal {
		t.Errorf("rejection decision = %+v", d)
	}

	// The window is over once a full window has elapsed since its start.
	d, _ = b.Allow(ctx, "user-1", t0.Add(time.Minute))
	if !d.Admitted {
		t.Fatal("first request of the next window was rejected")
	}
	if d.Remaining != 4 {
		t.Errorf("remaining after reset = %d, want 4", d.Remaining)
	}
	if !d.ResetAt.Equal(t0.Add(2 * time.Minute)) {
		t.Errorf("ResetAt after reset = %v", d.ResetAt)
	}
}

func TestLocalBackendBoundaryBurst(t *testing.T) {
	b := NewLocalBackend(5, time.Minute, 0)
	defer b.Close()
	ctx := context.Background()

	// One request opens the window, four more land just before it ends and
	// five more just after: ten admissions inside two seconds.
	admitted := 0
	times := []time.Duration{0, 59 * time.Second, 59 * time.Second, 59 * time.Second, 59 * time.Second}
	for i := 0; i < 5; i++ {
		times = append(times, 60*time.Second)
	}
	for _, offset := range times {
		d, err := b.Allow(ctx, "burst", t0.Add(offset))
		if err != nil {
			t.Fatal(err)
		}
		if d.Admitted {
			admitted++
		}
	}
	if admitted != 10 {
		t.Fatalf("admitted %d across the boundary, want 10", admitted)
	}
}

func TestLocalBackendKeysAreIndependent(t *testing.T) {
	b := NewLocalBackend(1, time.Minute, 0)
	defer b.Close()
	ctx := context.Background()

	if d, _ := b.Allow(ctx, "a", t0); !d.Admitted {
		t.Fatal("a rejected")
	}
	if d, _ := b.Allow(ctx, "b", t0); !d.Admitted {
		t.Fatal("b rejected after a used its quota")
	}
	if d, _ := b.Allow(ctx, "a", t0); d.Admitted {
		t.Fatal("a admitted past its limit")
	}
}

func TestLocalBackendConcurrentNoLostUpdates(t *testing.T) {
	const (
		limit      = 500
		goroutines = 50
		perWorker  = 20
	)

	b := NewLocalBackend(limit, time.Minute, 0)
	defer b.Close()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				d, err := b.Allow(context.Background(), "hot-key", t0)
				if err != nil {
					t.Error(err)
					return
				}
				if d.Admitted {
					admitted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != limit {
		t.Fatalf("admitted %d of %d requests, want exactly %d", got, goroutines*perWorker, limit)
	}
}

func TestLocalBackendReap(t *testing.T) {
	b := NewLocalBackend(3, time.Minute, 0)
	defer b.Close()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		b.Allow(ctx, fmt.Sprintf("user-%d", i), t0)
	}
	b.Allow(ctx, "late", t0.Add(30*time.Second))

	if n := b.Reap(t0.Add(time.Minute - time.Nanosecond)); n != 0 {
		t.Fatalf("reaped %d live windows", n)
	}
	if n := b.Reap(t0.Add(time.Minute)); n != 10 {
		t.Fatalf("reaped %d windows, want 10", n)
	}
	if n := b.Len(); n != 1 {
		t.Fatalf("Len = %d after reap, want 1", n)
	}
}

func TestLocalBackendReaperStopsOnClose(t *testing.T) {
	b := NewLocalBackend(1, time.Millisecond, time.Millisecond)
	b.Allow(context.Background(), "x", time.Now().Add(-time.Hour))

	deadline := time.Now().Add(2 * time.Second)
	for b.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.Len() != 0 {
		t.Fatal("reaper did not remove the expired window")
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
