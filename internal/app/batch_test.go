package app

import (
	"reflect"
	"sync"
	"testing"
)

type flushRecorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (f *flushRecorder) flush(batch []string) {
	f.mu.Lock()
	f.batches = append(f.batches, batch)
	f.mu.Unlock()
}

func (f *flushRecorder) snapshot() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.batches...)
}

func TestBufferFlushesFullBatch(t *testing.T) {
	rec := &flushRecorder{}
	b := NewTargetBuffer(3, rec.flush)

	b.Add("a")
	b.Add("b")
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("flushed early: %v", got)
	}
	b.Add("c")

	got := rec.snapshot()
	if len(got) != 1 || !reflect.DeepEqual(got[0], []string{"a", "b", "c"}) {
		t.Fatalf("batches = %v", got)
	}
	if b.Len() != 0 {
		t.Fatalf("Len = %d after flush", b.Len())
	}
}

func TestBufferDropsDuplicatesWithinBatch(t *testing.T) {
	rec := &flushRecorder{}
	b := NewTargetBuffer(2, rec.flush)

	b.Add("a")
	b.Add("a")
	b.Add("b")

	got := rec.snapshot()
	if len(got) != 1 || !reflect.DeepEqual(got[0], []string{"a", "b"}) {
		t.Fatalf("batches = %v", got)
	}
}

func TestBufferDedupResetsAcrossBatches(t *testing.T) {
	rec := &flushRecorder{}
	b := NewTargetBuffer(2, rec.flush)

	b.Add("a")
	b.Add("b")
	// A repeat of an already-flushed URL belongs to the next batch.
	b.Add("a")
	b.Add("c")

	got := rec.snapshot()
	if len(got) != 2 || !reflect.DeepEqual(got[1], []string{"a", "c"}) {
		t.Fatalf("batches = %v", got)
	}
}

func TestBufferManualFlush(t *testing.T) {
	rec := &flushRecorder{}
	b := NewTargetBuffer(10, rec.flush)

	b.Add("a")
	b.Flush()
	b.Flush() // empty, must not call out

	got := rec.snapshot()
	if len(got) != 1 || !reflect.DeepEqual(got[0], []string{"a"}) {
		t.Fatalf("batches = %v", got)
	}
}

func TestBufferFlushRunsOutsideLock(t *testing.T) {
	var b *TargetBuffer
	b = NewTargetBuffer(1, func([]string) {
		// Re-entering the buffer from the callback must not deadlock.
		_ = b.Len()
	})
	b.Add("a")
}
