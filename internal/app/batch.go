package app

import (
	"sync"
)

// TargetBuffer accumulates incoming post URLs and hands them off in
// fixed-size batches. Duplicates within one batch are dropped.
type TargetBuffer struct {
	mu    sync.Mutex
	size  int
	items []string
	seen  map[string]struct{}
	flush func(batch []string)
}

// NewTargetBuffer builds a buffer that calls flush with every full
// batch. flush runs outside the buffer lock, so it may call back into
// the buffer.
func NewTargetBuffer(size int, flush func(batch []string)) *TargetBuffer {
	if size <= 0 {
		size = 1
	}
	return &TargetBuffer{
		size:  size,
		seen:  make(map[string]struct{}),
		flush: flush,
	}
}

// Add queues one URL, flushing when the batch fills up.
func (b *TargetBuffer) Add(url string) {
	b.mu.Lock()
	if _, dup := b.seen[url]; dup {
		b.mu.Unlock()
		return
	}
	b.seen[url] = struct{}{}
	b.items = append(b.items, url)

	var batch []string
	if len(b.items) >= b.size {
		batch = b.takeLocked()
	}
	b.mu.Unlock()

	if batch != nil {
		b.flush(batch)
	}
}

// Flush hands off whatever is buffered, full batch or not.
func (b *TargetBuffer) Flush() {
	b.mu.Lock()
	batch := b.takeLocked()
	b.mu.Unlock()

	if batch != nil {
		b.flush(batch)
	}
}

func (b *TargetBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// takeLocked must be called with the lock held.
func (b *TargetBuffer) takeLocked() []string {
	if len(b.items) == 0 {
		return nil
	}
	batch := b.items
	b.items = nil
	b.seen = make(map[string]struct{})
	return batch
}
