// Package session loads bot session files and rotates them under
// cooldown and daily-quota rules.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/logger"
)

// Session is one loaded bot identity plus its rotation state. All state
// transitions go through the owning Manager.
type Session struct {
	name          string
	client        Client
	active        bool
	cooldownUntil time.Time
	assignedProxy model.Proxy
	dailyCount    int
	countDay      time.Time
}

func (s *Session) Name() string { return s.name }

func (s *Session) Client() Client { return s.client }

// AssignedProxy returns the proxy this session's traffic is pinned to,
// if one has been assigned yet.
func (s *Session) AssignedProxy() (model.Proxy, bool) {
	return s.assignedProxy, s.assignedProxy.Host != ""
}

// Manager owns the session list and hands them out round-robin. A
// session is skipped while inactive, cooling down, or over its daily
// quota; the scan gives up after one full round.
type Manager struct {
	mu         sync.Mutex
	sessions   []*Session
	cursor     int
	dailyLimit int
	now        func() time.Time
	log        zerolog.Logger
}

// NewManager creates an empty manager. dailyLimit <= 0 disables the
// quota check.
func NewManager(dailyLimit int) *Manager {
	return &Manager{
		dailyLimit: dailyLimit,
		now:        time.Now,
		log:        logger.WithComponent("session"),
	}
}

// LoadDir reads every *.session (plaintext token) and *.session.enc
// (vault-sealed token) file under dir, in filename order. Every token
// gets a startup probe; failures keep the session but mark it inactive.
// A missing directory is not an error, it just loads nothing.
func (m *Manager) LoadDir(ctx context.Context, dir string, vault *Vault, factory Factory) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			m.log.Warn().Str("dir", dir).Msg("Session directory does not exist, no sessions loaded")
			return nil
		}
		return fmt.Errorf("failed to read session directory %s: %w", dir, err)
	}

	active := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		sealed := strings.HasSuffix(name, ".session.enc")
		if !sealed && !strings.HasSuffix(name, ".session") {
			continue
		}
		if sealed && vault == nil {
			m.log.Warn().Str("file", name).Msg("Skipping sealed session, no session key configured")
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			m.log.Warn().Err(err).Str("file", name).Msg("Failed to read session file")
			continue
		}
		if sealed {
			if data, err = vault.Open(data); err != nil {
				m.log.Warn().Err(err).Str("file", name).Msg("Failed to unseal session file")
				continue
			}
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			m.log.Warn().Str("file", name).Msg("Session file is empty")
			continue
		}

		sname := strings.TrimSuffix(strings.TrimSuffix(name, ".enc"), ".session")
		client := factory(token)
		alive := true
		if err := client.Ping(ctx); err != nil {
			alive = false
			m.log.Warn().Err(err).Str("session", sname).Msg("Session failed startup check, marked inactive")
		} else {
			active++
			m.log.Info().Str("session", sname).Msg("Session ready")
		}
		m.Add(sname, client, alive)
	}

	m.log.Info().Int("loaded", m.Len()).Int("active", active).Msg("Session loading complete")
	return nil
}

// Add registers a ready-made session. Tokens injected outside the
// session directory (tests, environment) come in this way.
func (m *Manager) Add(name string, client Client, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, &Session{name: name, client: client, active: active})
}

// NextSession returns the next usable session, advancing the rotation
// cursor past it. It scans at most one full round.
func (m *Manager) NextSession() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.sessions)
	if n == 0 {
		return nil, false
	}
	now := m.now()
	for i := 0; i < n; i++ {
		idx := (m.cursor + i) % n
		s := m.sessions[idx]
		if !m.usable(s, now) {
			continue
		}
		m.cursor = (idx + 1) % n
		return s, true
	}
	return nil, false
}

// AssignProxy pins the session's client traffic to p. Only the first
// assignment takes; a session keeps one egress for its lifetime.
func (m *Manager) AssignProxy(s *Session, p model.Proxy) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.assignedProxy.Host != "" {
		return false
	}
	s.assignedProxy = p
	s.client.SetProxy(p.URL())
	m.log.Debug().Str("session", s.name).Str("proxy", p.Key()).Msg("Session pinned to proxy")
	return true
}

// MarkCooldown parks a session until now+d.
func (m *Manager) MarkCooldown(s *Session, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.cooldownUntil = m.now().Add(d)
	m.log.Warn().Str("session", s.name).Dur("cooldown", d).Msg("Session placed in cooldown")
}

// IncrementCount charges one action against the session's daily quota.
func (m *Manager) IncrementCount(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover(s, m.now())
	s.dailyCount++
}

// HasUsableSessions reports whether a NextSession call would succeed
// right now, without moving the cursor.
func (m *Manager) HasUsableSessions() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, s := range m.sessions {
		if m.usable(s, now) {
			return true
		}
	}
	return false
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll releases every session client and empties the manager.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.client.Close()
	}
	m.sessions = nil
	m.cursor = 0
}

// usable must be called with the lock held.
func (m *Manager) usable(s *Session, now time.Time) bool {
	if !s.active {
		return false
	}
	if now.Before(s.cooldownUntil) {
		return false
	}
	m.rollover(s, now)
	if m.dailyLimit > 0 && s.dailyCount >= m.dailyLimit {
		return false
	}
	return true
}

// rollover resets the daily count when the calendar day changes. Must
// be called with the lock held.
func (m *Manager) rollover(s *Session, now time.Time) {
	if s.countDay.IsZero() {
		s.countDay = now
		return
	}
	y1, mo1, d1 := s.countDay.Date()
	y2, mo2, d2 := now.Date()
	if y1 != y2 || mo1 != mo2 || d1 != d2 {
		s.dailyCount = 0
		s.countDay = now
	}
}
