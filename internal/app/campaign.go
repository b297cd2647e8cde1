package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/logger"
)

// CampaignEngine is one campaign's run loop. A fresh engine is built
// for every campaign so crashed or straggling runs never share state
// with the next one.
type CampaignEngine interface {
	Run(ctx context.Context, targets *booster.TargetList)
}

// CampaignManager keeps at most one campaign alive. Launching a new
// campaign cancels the previous one and waits up to joinTimeout for it
// to wind down before the replacement starts.
type CampaignManager struct {
	mu          sync.Mutex
	newEngine   func() CampaignEngine
	joinTimeout time.Duration

	cancel context.CancelFunc
	done   chan struct{}

	log zerolog.Logger
}

func NewCampaignManager(newEngine func() CampaignEngine, joinTimeout time.Duration) *CampaignManager {
	if joinTimeout <= 0 {
		joinTimeout = 5 * time.Second
	}
	return &CampaignManager{
		newEngine:   newEngine,
		joinTimeout: joinTimeout,
		log:         logger.WithComponent("campaign"),
	}
}

// Launch replaces the running campaign with a new one over targets.
func (c *CampaignManager) Launch(ctx context.Context, targets []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	engine := c.newEngine()
	list := booster.NewTargetList(targets...)
	c.log.Info().Int("targets", len(targets)).Msg("Launching campaign")
	go func() {
		defer close(done)
		engine.Run(runCtx, list)
	}()
}

// Stop cancels the running campaign, if any, and waits for it.
func (c *CampaignManager) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Running reports whether a campaign goroutine is currently alive.
func (c *CampaignManager) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// stopLocked must be called with the lock held.
func (c *CampaignManager) stopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	select {
	case <-c.done:
	case <-time.After(c.joinTimeout):
		c.log.Warn().Dur("join_timeout", c.joinTimeout).Msg("Campaign did not stop within join timeout")
	}
	c.cancel = nil
	c.done = nil
}
