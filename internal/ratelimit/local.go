package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 64

type window struct {
	start time.Time
	count int
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*window
}

// LocalBackend keeps fixed windows in process memory. Keys are spread over
// shards by hash and each shard has its own mutex, so concurrent checks for
// one key are serialized while different keys rarely contend.
type LocalBackend struct {
	limit  int
	window time.Duration
	shards [shardCount]shard

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewLocalBackend starts a reaper that discards expired windows every
// reapInterval. A non-positive reapInterval disables the reaper. Call Close
// to stop it.
func NewLocalBackend(limit int, windowLen time.Duration, reapInterval time.Duration) *LocalBackend {
	b := &LocalBackend{
		limit:  limit,
		window: windowLen,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for i := range b.shards {
		b.shards[i].windows = make(map[string]*window)
	}

	if reapInterval > 0 {
		go b.reapLoop(reapInterval)
	} else {
		close(b.done)
	}
	return b
}

func (b *LocalBackend) Name() string { return BackendLocal }

func (b *LocalBackend) shardFor(key string) *shard {
	return &b.shards[xxhash.Sum64String(key)%shardCount]
}

// Allow applies the fixed-window rule: a missing or elapsed window restarts
// at now with count 1; otherwise the request is admitted while count < limit.
func (b *LocalBackend) Allow(_ context.Context, key string, now time.Time) (Decision, error) {
	s := b.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= b.window {
		w = &window{start: now, count: 1}
		s.windows[key] = w
		return b.decision(true, w), nil
	}

	if w.count < b.limit {
		w.count++
		return b.decision(true, w), nil
	}
	return b.decision(false, w), nil
}

func (b *LocalBackend) decision(admitted bool, w *window) Decision {
	return Decision{
		Admitted:  admitted,
		Limit:     b.limit,
		Remaining: max(0, b.limit-w.count),
		ResetAt:   w.start.Add(b.window),
		Backend:   BackendLocal,
	}
}

// Reap removes windows that have elapsed at now and returns how many went.
func (b *LocalBackend) Reap(now time.Time) int {
	removed := 0
	for i := range b.shards {
		s := &b.shards[i]
		s.mu.Lock()
		for key, w := range s.windows {
			if now.Sub(w.start) >= b.window {
				delete(s.windows, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len is the number of tracked identifiers.
func (b *LocalBackend) Len() int {
	n := 0
	for i := range b.shards {
		s := &b.shards[i]
		s.mu.Lock()
		n += len(s.windows)
		s.mu.Unlock()
	}
	return n
}

func (b *LocalBackend) reapLoop(interval time.Duration) {
	defer close(b.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case now := <-ticker.C:
			if n := b.Reap(now); n > 0 {
				recordReaped(n)
			}
		}
	}
}

// Close stops the reaper and waits for it to exit. Safe to call twice.
func (b *LocalBackend) Close() error {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
	return nil
}
