package capacity

import (
	"sort"
	"sync"
	"time"
)

// WindowLocks hands out per-time-bucket mutexes so that two writes whose
// conflict windows overlap are checked and persisted one at a time within
// this process. Buckets are the width of the conflict window; a caller
// locks its own bucket plus both neighbours, in key order, so overlapping
// windows always contend on at least one shared bucket.
//
// This closes the check-then-act race for a single instance. Running more
// than one instance moves the problem to the store; see DESIGN.md.
type WindowLocks struct {
	width time.Duration

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewWindowLocks(width time.Duration) *WindowLocks {
	if width <= 0 {
		width = time.Hour
	}
	return &WindowLocks{
		width: width,
		locks: make(map[int64]*sync.Mutex),
	}
}

func (w *WindowLocks) bucketKeys(t time.Time) []int64 {
	bucket := t.UnixNano() / int64(w.width)
	keys := []int64{bucket - 1, bucket, bucket + 1}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (w *WindowLocks) lockFor(key int64) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.locks[key]
	if !ok {
		m = &sync.Mutex{}
		w.locks[key] = m
	}
	return m
}

// Lock acquires the bucket locks covering t's conflict window and returns
// the release func. Locks are taken in ascending key order to avoid
// deadlock between overlapping callers.
func (w *WindowLocks) Lock(t time.Time) func() {
	keys := w.bucketKeys(t)
	held := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		m := w.lockFor(k)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
