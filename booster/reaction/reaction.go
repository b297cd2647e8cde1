// Package reaction puts emoji reactions on freshly viewed posts through
// the rotating session pool. Everything here is best effort; a failed
// reaction never propagates past this package.
package reaction

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/session"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/logger"
)

// Engine draws a session, waits a human-scale delay and fires one
// reaction. Session bookkeeping (cooldowns, daily counts) stays inside
// the Manager.
type Engine struct {
	sessions        *session.Manager
	emojis          []string
	delayMin        time.Duration
	delayMax        time.Duration
	defaultCooldown time.Duration

	// test seams
	intn  func(n int) int
	sleep func(ctx context.Context, d time.Duration) bool

	log zerolog.Logger
}

func New(sessions *session.Manager, emojis []string, delayMin, delayMax, defaultCooldown time.Duration) *Engine {
	if len(emojis) == 0 {
		emojis = []string{"👍"}
	}
	if delayMax < delayMin {
		delayMax = delayMin
	}
	return &Engine{
		sessions:        sessions,
		emojis:          emojis,
		delayMin:        delayMin,
		delayMax:        delayMax,
		defaultCooldown: defaultCooldown,
		intn:            rand.Intn,
		sleep:           sleepCtx,
		log:             logger.WithComponent("reaction"),
	}
}

// Available reports whether a React call could obtain a session right
// now. Callers use it to skip the delay when the pool is dry.
func (e *Engine) Available() bool {
	return e.sessions.HasUsableSessions()
}

// React sends one random emoji to the post behind target. A non-empty
// via pins the drawn session to that proxy on its first use. It returns
// true only when the reaction was actually delivered. No usable session
// is a silent decline, not a failure.
func (e *Engine) React(ctx context.Context, target string, via model.Proxy) bool {
	channel, messageID, err := parseTarget(target)
	if err != nil {
		e.log.Debug().Err(err).Str("target", target).Msg("Cannot react to target")
		return false
	}

	s, ok := e.sessions.NextSession()
	if !ok {
		e.log.Debug().Str("target", target).Msg("No usable session for reaction")
		return false
	}
	if via.Host != "" {
		e.sessions.AssignProxy(s, via)
	}

	emoji := e.emojis[e.intn(len(e.emojis))]
	if !e.sleep(ctx, e.nextDelay()) {
		return false
	}

	err = s.Client().SetReaction(ctx, channel, messageID, emoji)
	var flood *session.FloodWaitError
	switch {
	case err == nil:
		e.sessions.IncrementCount(s)
		e.log.Info().
			Str("session", s.Name()).
			Str("emoji", emoji).
			Str("channel", channel).
			Int("message_id", messageID).
			Msg("Reaction sent")
		return true
	case errors.As(err, &flood):
		e.sessions.MarkCooldown(s, flood.RetryAfter)
		return false
	default:
		e.log.Debug().Err(err).Str("session", s.Name()).Msg("Reaction failed")
		e.sessions.MarkCooldown(s, e.defaultCooldown)
		return false
	}
}

// nextDelay draws uniformly from [delayMin, delayMax] at millisecond
// granularity.
func (e *Engine) nextDelay() time.Duration {
	d := e.delayMin
	if spread := e.delayMax - e.delayMin; spread > 0 {
		d += time.Duration(e.intn(int(spread/time.Millisecond)+1)) * time.Millisecond
	}
	return d
}

// parseTarget extracts channel and message id from a post URL such as
// https://t.me/somechannel/12345 or https://t.me/s/somechannel/12345.
func parseTarget(target string) (string, int, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", 0, fmt.Errorf("invalid target url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && parts[0] == "s" {
		parts = parts[1:]
	}
	if len(parts) < 2 {
		return "", 0, fmt.Errorf("target %q has no channel/message path", target)
	}
	messageID, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return "", 0, fmt.Errorf("target %q has no numeric message id", target)
	}
	return parts[0], messageID, nil
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
