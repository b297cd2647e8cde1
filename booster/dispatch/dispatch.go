// Package dispatch fans one cycle of view attempts out across the
// current proxy pool under a global concurrency bound.
package dispatch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/logger"
)

// Executor runs one view attempt: one target through one proxy. The
// returned elapsed time only matters on success.
type Executor interface {
	Execute(ctx context.Context, p model.Proxy, target string) (elapsedMS int64, err error)
}

// Pool is the consumable proxy source a cycle drains.
type Pool interface {
	Acquire() (model.Proxy, bool)
}

// ViewSucceeded is emitted after every successful attempt.
type ViewSucceeded struct {
	Target string
	Proxy  model.Proxy
}

// Subscriber consumes success events. A panicking subscriber never
// aborts the cycle; the panic is logged and swallowed.
type Subscriber func(ctx context.Context, ev ViewSucceeded)

// Dispatcher drives dispatch cycles. Safe for reuse across cycles; all
// per-cycle state lives in the cycle's own recorder.
type Dispatcher struct {
	executor    Executor
	concurrency int64
	jitterMinMS int
	jitterMaxMS int
	subscriber  Subscriber
	log         zerolog.Logger
}

func New(executor Executor, concurrency, jitterMinMS, jitterMaxMS int, subscriber Subscriber) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Dispatcher{
		executor:    executor,
		concurrency: int64(concurrency),
		jitterMinMS: jitterMinMS,
		jitterMaxMS: jitterMaxMS,
		subscriber:  subscriber,
		log:         logger.WithComponent("dispatch"),
	}
}

// RunCycle drains the entire pool into a task set, one task per proxy,
// and iterates every task over every target. The report is a value
// snapshot; the caller may keep it around.
func (d *Dispatcher) RunCycle(ctx context.Context, pl Pool, targets []string) model.CycleReport {
	var proxies []model.Proxy
	for {
		p, ok := pl.Acquire()
		if !ok {
			break
		}
		proxies = append(proxies, p)
	}

	rec := newRecorder(len(proxies))
	if len(proxies) == 0 || len(targets) == 0 {
		d.log.Warn().Int("proxies", len(proxies)).Int("targets", len(targets)).Msg("Nothing to dispatch")
		return rec.snapshot()
	}

	d.log.Info().
		Int("proxies", len(proxies)).
		Int("targets", len(targets)).
		Int64("concurrency", d.concurrency).
		Msg("Starting dispatch cycle...")

	sem := semaphore.NewWeighted(d.concurrency)
	var wg sync.WaitGroup
	for _, p := range proxies {
		wg.Add(1)
		go func(p model.Proxy) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return // cycle cancelled while queued
			}
			defer sem.Release(1)
			d.runProxy(ctx, p, targets, rec)
		}(p)
	}
	wg.Wait()

	return rec.snapshot()
}

// runProxy iterates one proxy over every target in order, sleeping a
// jitter delay between targets but never before the first.
func (d *Dispatcher) runProxy(ctx context.Context, p model.Proxy, targets []string, rec *recorder) {
	for i, target := range targets {
		if i > 0 && !sleepCtx(ctx, d.nextJitter()) {
			return
		}
		if ctx.Err() != nil {
			return
		}

		elapsed, err := d.executor.Execute(ctx, p, target)
		if err != nil {
			if ctx.Err() != nil {
				return // cancelled mid-attempt, not a real failure
			}
			rec.failure()
			d.log.Debug().Err(err).Str("proxy", p.Key()).Str("target", target).Msg("View attempt failed")
			continue
		}

		rec.success(target, elapsed)
		d.emit(ctx, ViewSucceeded{Target: target, Proxy: p})
	}
}

func (d *Dispatcher) emit(ctx context.Context, ev ViewSucceeded) {
	if d.subscriber == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn().Interface("panic", r).Str("target", ev.Target).Msg("Success subscriber panicked")
		}
	}()
	d.subscriber(ctx, ev)
}

// nextJitter draws uniformly from [jitterMin, jitterMax] milliseconds.
func (d *Dispatcher) nextJitter() time.Duration {
	ms := d.jitterMinMS
	if spread := d.jitterMaxMS - d.jitterMinMS; spread > 0 {
		ms += rand.Intn(spread + 1)
	}
	return time.Duration(ms) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// recorder is the mutex-guarded cycle report under construction.
// Concurrent per-proxy tasks all write here; the snapshot taken at the
// end of the cycle is what leaves the package.
type recorder struct {
	mu     sync.Mutex
	report model.CycleReport
}

func newRecorder(totalProxies int) *recorder {
	return &recorder{
		report: model.CycleReport{
			TotalProxies:   totalProxies,
			ViewsPerTarget: make(map[string]int),
		},
	}
}

func (r *recorder) success(target string, elapsedMS int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.SuccessfulViews++
	r.report.ViewsPerTarget[target]++
	// Two-sample blend, not a true running mean. The damping behavior
	// is load-bearing for downstream tuning; do not "fix" casually.
	if r.report.AvgResponseMS == 0 {
		r.report.AvgResponseMS = float64(elapsedMS)
	} else {
		r.report.AvgResponseMS = (r.report.AvgResponseMS + float64(elapsedMS)) / 2
	}
}

func (r *recorder) failure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.FailedViews++
}

func (r *recorder) snapshot() model.CycleReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.report
	out.ViewsPerTarget = make(map[string]int, len(r.report.ViewsPerTarget))
	for k, v := range r.report.ViewsPerTarget {
		out.ViewsPerTarget[k] = v
	}
	return out
}
