package utils

import (
	"context"
	"sync"
	"time"
)

// WorkerPool runs jobs on a bounded number of goroutines. Job starts are
// spaced by at least the configured interval.
type WorkerPool struct {
	slots    chan struct{}
	interval time.Duration
	wg       sync.WaitGroup

	mu       sync.Mutex
	nextSlot time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and minimum
// gap between job starts. maxWorkers below 1 is treated as 1.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		slots:    make(chan struct{}, maxWorkers),
		interval: time.Duration(rateLimitMs) * time.Millisecond,
	}
}

// Submit waits for a free worker and starts job on it. It returns ctx's
// error without running job when ctx ends first.
func (wp *WorkerPool) Submit(ctx context.Context, job func()) error {
	select {
	case wp.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.slots }()

		wp.waitTurn(ctx)
		job()
	}()
	return nil
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// waitTurn reserves the next start time and sleeps until it.
func (wp *WorkerPool) waitTurn(ctx context.Context) {
	if wp.interval <= 0 {
		return
	}

	wp.mu.Lock()
	now := time.Now()
	start := wp.nextSlot
	if start.Before(now) {
		start = now
	}
	wp.nextSlot = start.Add(wp.interval)
	wp.mu.Unlock()

	if d := time.Until(start); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}
	}
}

// KeySet is a thread-safe set of string keys.
type KeySet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *KeySet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

func (s *KeySet) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[key]
	return exists
}

func (s *KeySet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
