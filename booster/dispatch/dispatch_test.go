package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/pool"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls int
	fn    func(p model.Proxy, target string) (int64, error)
}

func (f *fakeExecutor) Execute(ctx context.Context, p model.Proxy, target string) (int64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.fn(p, target)
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func mkPool(n int) *pool.Pool {
	pl := pool.New(0)
	batch := make([]model.Proxy, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, model.Proxy{
			Protocol: model.ProtocolHTTP,
			Host:     fmt.Sprintf("10.0.0.%d", i+1),
			Port:     8080,
		})
	}
	pl.Load(batch)
	return pl
}

func TestRunCycleAllSucceed(t *testing.T) {
	exec := &fakeExecutor{fn: func(model.Proxy, string) (int64, error) { return 40, nil }}
	d := New(exec, 8, 0, 0, nil)

	pl := mkPool(5)
	targets := []string{"http://upstream.test/chan/1", "http://upstream.test/chan/2"}
	report := d.RunCycle(context.Background(), pl, targets)

	if report.TotalProxies != 5 {
		t.Fatalf("TotalProxies = %d, want 5", report.TotalProxies)
	}
	if report.SuccessfulViews != 10 || report.FailedViews != 0 {
		t.Fatalf("views = %d ok / %d failed, want 10/0", report.SuccessfulViews, report.FailedViews)
	}
	for _, target := range targets {
		if got := report.ViewsPerTarget[target]; got != 5 {
			t.Errorf("ViewsPerTarget[%s] = %d, want 5", target, got)
		}
	}
	if report.AvgResponseMS != 40 {
		t.Errorf("AvgResponseMS = %v, want 40", report.AvgResponseMS)
	}
	if !pl.IsEmpty() {
		t.Errorf("pool not drained, %d left", pl.Size())
	}
	if exec.callCount() != 10 {
		t.Errorf("executor calls = %d, want 10", exec.callCount())
	}
}

func TestRunCycleReportConsistency(t *testing.T) {
	// Attempts via .3 proxies fail, the rest succeed. Totals must add up
	// no matter how the goroutines interleave.
	exec := &fakeExecutor{fn: func(p model.Proxy, _ string) (int64, error) {
		if p.Host == "10.0.0.3" {
			return 0, errors.New("connect refused")
		}
		return 25, nil
	}}
	d := New(exec, 4, 0, 0, nil)

	targets := []string{"http://upstream.test/a/1", "http://upstream.test/b/2", "http://upstream.test/c/3"}
	report := d.RunCycle(context.Background(), mkPool(6), targets)

	attempts := report.TotalProxies * len(targets)
	if report.SuccessfulViews+report.FailedViews != attempts {
		t.Fatalf("ok+failed = %d, want %d", report.SuccessfulViews+report.FailedViews, attempts)
	}
	if report.FailedViews != len(targets) {
		t.Errorf("FailedViews = %d, want %d", report.FailedViews, len(targets))
	}
	sum := 0
	for _, n := range report.ViewsPerTarget {
		sum += n
	}
	if sum != report.SuccessfulViews {
		t.Errorf("sum(ViewsPerTarget) = %d, SuccessfulViews = %d", sum, report.SuccessfulViews)
	}
}

func TestRunCycleEmptyPool(t *testing.T) {
	exec := &fakeExecutor{fn: func(model.Proxy, string) (int64, error) { return 1, nil }}
	d := New(exec, 4, 0, 0, nil)

	report := d.RunCycle(context.Background(), pool.New(0), []string{"http://upstream.test/a/1"})
	if report.TotalProxies != 0 || report.SuccessfulViews != 0 || report.FailedViews != 0 {
		t.Fatalf("want zero report, got %+v", report)
	}
	if exec.callCount() != 0 {
		t.Errorf("executor called %d times on empty pool", exec.callCount())
	}
}

func TestRunCycleEmptyTargets(t *testing.T) {
	exec := &fakeExecutor{fn: func(model.Proxy, string) (int64, error) { return 1, nil }}
	d := New(exec, 4, 0, 0, nil)

	pl := mkPool(3)
	report := d.RunCycle(context.Background(), pl, nil)
	if report.TotalProxies != 3 {
		t.Fatalf("TotalProxies = %d, want 3 (pool still drained)", report.TotalProxies)
	}
	if report.SuccessfulViews != 0 || report.FailedViews != 0 || exec.callCount() != 0 {
		t.Fatalf("no attempts expected, got %+v after %d calls", report, exec.callCount())
	}
	if !pl.IsEmpty() {
		t.Errorf("pool should be drained even with no targets")
	}
}

func TestRunCycleCancellationNotCounted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var once sync.Once
	exec := &fakeExecutor{fn: func(model.Proxy, string) (int64, error) {
		once.Do(cancel)
		return 0, ctx.Err()
	}}
	d := New(exec, 2, 0, 0, nil)

	done := make(chan model.CycleReport, 1)
	go func() {
		done <- d.RunCycle(ctx, mkPool(10), []string{"http://upstream.test/a/1", "http://upstream.test/a/2"})
	}()

	var report model.CycleReport
	select {
	case report = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunCycle did not return after cancellation")
	}

	if report.FailedViews != 0 {
		t.Errorf("cancelled attempts counted as failures: %d", report.FailedViews)
	}
	if report.SuccessfulViews != 0 {
		t.Errorf("SuccessfulViews = %d, want 0", report.SuccessfulViews)
	}
	if report.TotalProxies != 10 {
		t.Errorf("TotalProxies = %d, want 10", report.TotalProxies)
	}
}

func TestRunCycleSubscriber(t *testing.T) {
	exec := &fakeExecutor{fn: func(model.Proxy, string) (int64, error) { return 10, nil }}

	var mu sync.Mutex
	var events []ViewSucceeded
	sub := func(_ context.Context, ev ViewSucceeded) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}
	d := New(exec, 4, 0, 0, sub)

	target := "http://upstream.test/chan/7"
	report := d.RunCycle(context.Background(), mkPool(4), []string{target})

	mu.Lock()
	defer mu.Unlock()
	if len(events) != report.SuccessfulViews {
		t.Fatalf("got %d events for %d successes", len(events), report.SuccessfulViews)
	}
	for _, ev := range events {
		if ev.Target != target {
			t.Errorf("event target = %q, want %q", ev.Target, target)
		}
		if ev.Proxy.Host == "" {
			t.Errorf("event proxy missing host")
		}
	}
}

func TestRunCycleSubscriberPanicSwallowed(t *testing.T) {
	exec := &fakeExecutor{fn: func(model.Proxy, string) (int64, error) { return 10, nil }}
	sub := func(context.Context, ViewSucceeded) { panic("subscriber exploded") }
	d := New(exec, 2, 0, 0, sub)

	report := d.RunCycle(context.Background(), mkPool(3), []string{"http://upstream.test/a/1", "http://upstream.test/a/2"})
	if report.SuccessfulViews != 6 {
		t.Fatalf("SuccessfulViews = %d, want 6 (panics must not abort attempts)", report.SuccessfulViews)
	}
}

func TestNextJitterBounds(t *testing.T) {
	d := New(&fakeExecutor{fn: func(model.Proxy, string) (int64, error) { return 0, nil }}, 1, 10, 50, nil)

	lo, hi := 10*time.Millisecond, 50*time.Millisecond
	for i := 0; i < 1000; i++ {
		got := d.nextJitter()
		if got < lo || got > hi {
			t.Fatalf("jitter %v outside [%v, %v]", got, lo, hi)
		}
	}
}

func TestNextJitterDegenerateRange(t *testing.T) {
	d := New(&fakeExecutor{fn: func(model.Proxy, string) (int64, error) { return 0, nil }}, 1, 25, 25, nil)
	for i := 0; i < 10; i++ {
		if got := d.nextJitter(); got != 25*time.Millisecond {
			t.Fatalf("jitter = %v, want 25ms exactly", got)
		}
	}
}

func TestAvgResponseBlend(t *testing.T) {
	rec := newRecorder(2)
	rec.success("t", 100)
	rec.success("t", 50)
	// (100 + 50) / 2, not a weighted running mean.
	if got := rec.snapshot().AvgResponseMS; got != 75 {
		t.Fatalf("AvgResponseMS = %v, want 75", got)
	}
	rec.success("t", 25)
	if got := rec.snapshot().AvgResponseMS; got != 50 {
		t.Fatalf("AvgResponseMS = %v, want 50", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	rec := newRecorder(1)
	rec.success("t", 10)
	snap := rec.snapshot()
	snap.ViewsPerTarget["t"] = 99

	if got := rec.snapshot().ViewsPerTarget["t"]; got != 1 {
		t.Fatalf("snapshot mutation leaked into recorder: %d", got)
	}
}
