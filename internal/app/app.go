// Package app wires configuration into a running campaign service:
// session loading, engine construction, batch intake and shutdown.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/checker"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/dispatch"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/hunter"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/pool"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/reaction"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/session"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/viewproto"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/logger"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/types"
)

// Reactor is the optional secondary-action capability. The field stays
// nil when reactions are disabled; absence is a configuration state,
// not an error.
type Reactor interface {
	Available() bool
	React(ctx context.Context, target string, via model.Proxy) bool
}

// App is the application's main struct.
type App struct {
	cfg *types.Config

	sessions  *session.Manager
	reactor   Reactor
	campaigns *CampaignManager
	buffer    *TargetBuffer

	// reactions carries view successes to the single reaction worker.
	// Session state is only ever touched from that worker.
	reactions chan dispatch.ViewSucceeded

	stdin io.Reader

	runCtx   context.Context
	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	log zerolog.Logger
}

// New builds the full component graph from cfg. Nothing starts running
// until Run.
func New(cfg *types.Config) *App {
	a := &App{
		cfg:       cfg,
		reactions: make(chan dispatch.ViewSucceeded, 16),
		stdin:     os.Stdin,
		stop:      make(chan struct{}),
		log:       logger.WithComponent("app"),
	}

	a.sessions = session.NewManager(cfg.ReactionConf.DailyLimit)
	if cfg.ReactionConf.Enabled {
		a.reactor = reaction.New(
			a.sessions,
			cfg.ReactionConf.Emojis,
			cfg.ReactionConf.DelayMin,
			cfg.ReactionConf.DelayMax,
			cfg.ReactionConf.DefaultCooldown,
		)
	}

	var sources []hunter.Source
	if len(cfg.Sources) > 0 {
		sources = hunter.FromSpecs(cfg.Sources, cfg.BoosterConf.RequestTimeout)
	} else {
		sources = hunter.DefaultSources(cfg.BoosterConf.RequestTimeout)
	}
	hnt := hunter.New(sources)
	chk := checker.New(cfg.HealthConf.Timeout, cfg.HealthConf.Concurrency, cfg.BoosterConf.BaseURL, cfg.HealthConf.Channel)
	pl := pool.New(cfg.BoosterConf.CriticalThreshold)
	sender := viewproto.New(cfg.BoosterConf.BaseURL, cfg.BoosterConf.RequestTimeout)
	disp := dispatch.New(sender, cfg.BoosterConf.MaxConcurrency, cfg.BoosterConf.JitterMinMS, cfg.BoosterConf.JitterMaxMS, a.onViewSucceeded)

	newEngine := func() CampaignEngine {
		return booster.New(booster.Params{
			Hunter:       hnt,
			Checker:      chk,
			Runner:       disp,
			Pool:         pl,
			RetryDelay:   cfg.BoosterConf.RetryDelay,
			RestartDelay: cfg.BoosterConf.RestartDelay,
		})
	}
	a.campaigns = NewCampaignManager(newEngine, cfg.AppConf.JoinTimeout)
	a.buffer = NewTargetBuffer(cfg.AppConf.BatchSize, a.launchBatch)

	return a
}

// Run blocks until ctx is cancelled or Stop is called, then winds the
// service down: campaign stopped, reaction worker joined, sessions
// closed.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.runCtx = runCtx

	if a.cfg.ReactionConf.Enabled {
		if err := a.loadSessions(runCtx); err != nil {
			return err
		}
	}
	if a.reactor != nil {
		a.wg.Add(1)
		go a.reactionWorker(runCtx)
	}

	if targets := a.cfg.BoosterConf.Targets; len(targets) > 0 {
		a.campaigns.Launch(runCtx, normalizeTargets(targets, a.cfg.BoosterConf.BaseURL))
	}

	if a.cfg.AppConf.ReadStdin {
		// Untracked on purpose: a blocking stdin read cannot be
		// interrupted, and shutdown must not wait for one.
		go a.feedTargets(runCtx, a.stdin)
	}

	select {
	case <-runCtx.Done():
	case <-a.stop:
	}

	a.log.Info().Msg("Shutting down...")
	cancel()
	a.campaigns.Stop()
	a.wg.Wait()
	a.sessions.CloseAll()
	return nil
}

// Stop requests shutdown. Safe to call from any goroutine, before or
// after Run starts.
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
}

// onViewSucceeded hands a successful view to the reaction worker. The
// backlog is lossy: when the worker is behind, extra events are
// dropped, so a multi-second human delay never stalls the proxy task
// that produced the view.
func (a *App) onViewSucceeded(_ context.Context, ev dispatch.ViewSucceeded) {
	if a.reactor == nil || !a.reactor.Available() {
		return
	}
	select {
	case a.reactions <- ev:
	default:
		a.log.Debug().Str("target", ev.Target).Msg("Reaction backlog full, dropping view event")
	}
}

// reactionWorker serializes all reaction attempts. Session rotation
// state is mutated only from this goroutine.
func (a *App) reactionWorker(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.reactions:
			a.reactor.React(ctx, ev.Target, ev.Proxy)
		}
	}
}

func (a *App) launchBatch(batch []string) {
	ctx := a.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	a.campaigns.Launch(ctx, batch)
}

func (a *App) loadSessions(ctx context.Context) error {
	var vault *session.Vault
	if key := a.cfg.ReactionConf.SessionKey; key != "" {
		v, err := session.NewVault(key)
		if err != nil {
			return fmt.Errorf("failed to open session vault: %w", err)
		}
		vault = v
	}
	factory := func(token string) session.Client {
		return session.NewBotClient(token, a.cfg.ReactionConf.APIBase, a.cfg.BoosterConf.RequestTimeout)
	}
	if err := a.sessions.LoadDir(ctx, a.cfg.ReactionConf.SessionDir, vault, factory); err != nil {
		return err
	}
	if token := a.cfg.ReactionConf.BotToken; token != "" {
		client := factory(token)
		alive := true
		if err := client.Ping(ctx); err != nil {
			alive = false
			a.log.Warn().Err(err).Msg("Configured bot token failed startup check, marked inactive")
		}
		a.sessions.Add("config", client, alive)
	}
	if !a.sessions.HasUsableSessions() {
		a.log.Warn().Msg("Reactions enabled but no usable session was loaded")
	}
	return nil
}

// feedTargets turns lines on r into campaign batches. A line is either
// a full post URL or a channel/message pair relative to the base URL.
// EOF flushes whatever partial batch remains.
func (a *App) feedTargets(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		a.buffer.Add(normalizeTarget(line, a.cfg.BoosterConf.BaseURL))
	}
	if err := scanner.Err(); err != nil {
		a.log.Warn().Err(err).Msg("Target feed closed with error")
	}
	a.buffer.Flush()
}

func normalizeTarget(line, baseURL string) string {
	if strings.Contains(line, "://") {
		return line
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(line, "/@")
}

func normalizeTargets(lines []string, baseURL string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, normalizeTarget(line, baseURL))
	}
	return out
}
