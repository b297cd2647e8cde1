// Package booster runs the continuous view campaign loop: keep the
// proxy pool stocked, hand it to the dispatcher one cycle at a time,
// repeat until cancelled.
package booster

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/dispatch"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/pool"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/logger"
)

// ProxyHunter aggregates proxy candidates from all configured sources.
type ProxyHunter interface {
	HuntAll(ctx context.Context) []model.Proxy
}

// HealthChecker filters candidates down to live, latency-sorted proxies.
type HealthChecker interface {
	Check(ctx context.Context, candidates []model.Proxy) []model.Proxy
}

// CycleRunner executes one dispatch cycle over the pool.
type CycleRunner interface {
	RunCycle(ctx context.Context, pl dispatch.Pool, targets []string) model.CycleReport
}

// TargetList is the mutable set of post URLs a campaign works on. The
// outer layer may swap it while the engine runs; each cycle takes a
// snapshot.
type TargetList struct {
	mu   sync.Mutex
	urls []string
}

func NewTargetList(urls ...string) *TargetList {
	t := &TargetList{}
	t.Set(urls)
	return t
}

func (t *TargetList) Set(urls []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.urls = append([]string(nil), urls...)
}

func (t *TargetList) Snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.urls...)
}

// Params wires an Engine. Pool, Hunter, Checker and Runner are
// required.
type Params struct {
	Hunter  ProxyHunter
	Checker HealthChecker
	Runner  CycleRunner
	Pool    *pool.Pool

	// RetryDelay is the backoff when the landscape is fully exhausted
	// (a refill still left the pool empty). RestartDelay is the pause
	// before the supervised loop restarts after a crash.
	RetryDelay   time.Duration
	RestartDelay time.Duration
}

// Engine is the campaign orchestrator. One Engine drives one campaign;
// Run may be called once.
type Engine struct {
	hunter  ProxyHunter
	checker HealthChecker
	runner  CycleRunner
	pool    *pool.Pool

	retryDelay   time.Duration
	restartDelay time.Duration

	refillMu  sync.Mutex  // serializes Hunt+Check+Load
	refilling atomic.Bool // {Idle, Refilling} for the background path
	bg        sync.WaitGroup

	log zerolog.Logger
}

func New(p Params) *Engine {
	if p.RetryDelay <= 0 {
		p.RetryDelay = 5 * time.Second
	}
	if p.RestartDelay <= 0 {
		p.RestartDelay = 10 * time.Second
	}
	return &Engine{
		hunter:       p.Hunter,
		checker:      p.Checker,
		runner:       p.Runner,
		pool:         p.Pool,
		retryDelay:   p.RetryDelay,
		restartDelay: p.RestartDelay,
		log:          logger.WithComponent("booster"),
	}
}

// Run drives the campaign until ctx is cancelled. A panic escaping an
// iteration is logged and followed by a restart of the whole loop
// after RestartDelay; only cancellation ends Run. Any in-flight
// background refill is awaited before returning.
func (e *Engine) Run(ctx context.Context, targets *TargetList) {
	campaign := shortID()
	log := e.log.With().Str("campaign", campaign).Logger()
	log.Info().Int("targets", len(targets.Snapshot())).Msg("Campaign starting")

	for ctx.Err() == nil {
		e.runSupervised(ctx, log, targets)
		if ctx.Err() != nil {
			break
		}
		log.Warn().Dur("restart_in", e.restartDelay).Msg("Campaign loop restarting after crash")
		if !sleepCtx(ctx, e.restartDelay) {
			break
		}
	}

	e.bg.Wait()
	log.Info().Msg("Campaign stopped")
}

// runSupervised contains the top-level catch. Panics from the loop body
// land here so the campaign survives bugs and library failures.
func (e *Engine) runSupervised(ctx context.Context, log zerolog.Logger, targets *TargetList) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Campaign loop crashed")
		}
	}()
	e.loop(ctx, log, targets)
}

func (e *Engine) loop(ctx context.Context, log zerolog.Logger, targets *TargetList) {
	// Stock the pool before the first dispatch.
	e.refill(ctx)

	for ctx.Err() == nil {
		if e.pool.IsEmpty() {
			e.refill(ctx)
		} else if e.pool.IsCritical() {
			e.backgroundRefill(ctx)
		}

		if e.pool.IsEmpty() {
			log.Warn().Dur("retry_in", e.retryDelay).Msg("Proxy pool empty after refill, backing off")
			if !sleepCtx(ctx, e.retryDelay) {
				return
			}
			continue
		}

		urls := targets.Snapshot()
		if len(urls) == 0 {
			log.Warn().Dur("retry_in", e.retryDelay).Msg("No targets configured, waiting")
			if !sleepCtx(ctx, e.retryDelay) {
				return
			}
			continue
		}

		started := time.Now()
		report := e.runner.RunCycle(ctx, e.pool, urls)
		if ctx.Err() != nil {
			return
		}
		log.Info().
			Str("cycle", shortID()).
			Int("proxies", report.TotalProxies).
			Int("ok", report.SuccessfulViews).
			Int("failed", report.FailedViews).
			Float64("avg_ms", report.AvgResponseMS).
			Dur("took", time.Since(started)).
			Msg("Cycle complete")
	}
}

// refill runs one Hunt+Check+Load sequence. The mutex keeps concurrent
// triggers (sync and background) down to one sequence at a time; an
// empty hunt or an empty health-check result leaves the pool unchanged.
func (e *Engine) refill(ctx context.Context) {
	e.refillMu.Lock()
	defer e.refillMu.Unlock()
	if ctx.Err() != nil {
		return
	}

	e.log.Info().Msg("Refilling proxy pool...")
	candidates := e.hunter.HuntAll(ctx)
	if len(candidates) == 0 {
		e.log.Warn().Msg("Hunt produced no candidates, pool unchanged")
		return
	}

	alive := e.checker.Check(ctx, candidates)
	if len(alive) == 0 {
		e.log.Warn().Int("candidates", len(candidates)).Msg("No candidates passed the health check, pool unchanged")
		return
	}

	e.pool.Load(alive)
	e.log.Info().
		Int("candidates", len(candidates)).
		Int("alive", len(alive)).
		Int("pool", e.pool.Size()).
		Msg("Pool refilled")
}

// backgroundRefill launches refill off the loop unless one is already
// in flight.
func (e *Engine) backgroundRefill(ctx context.Context) {
	if !e.refilling.CompareAndSwap(false, true) {
		return
	}
	e.log.Info().Int("pool", e.pool.Size()).Msg("Pool below critical threshold, refilling in background")
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		defer e.refilling.Store(false)
		e.refill(ctx)
	}()
}

func shortID() string {
	return uuid.NewString()[:8]
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
