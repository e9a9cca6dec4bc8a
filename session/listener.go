package session

import (
	"context"

	"github.com/jrsteele09/go-auth-session/identity"
)

// Start subscribes to backend session changes, then resolves the initial
// session. It returns once the initial check has settled. Calling Start more
// than once, or after Close, does nothing.
func (m *Manager) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		m.logger.Warn().Msg("session manager already started")
		return
	}

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}

	// The backend may deliver an event from inside Subscribe, so no lock is
	// held across the call.
	m.mounted.Store(true)
	sub := m.backend.SubscribeToSessionChanges(m.handleChange)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.mounted.Store(false)
		sub.Unsubscribe()
		return
	}
	m.sub = sub
	m.mu.Unlock()

	m.bootstrap(ctx)
}

// Close stops reacting to backend events and unsubscribes exactly once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mounted.Store(false)
		m.cancel()

		m.mu.Lock()
		m.closed = true
		sub := m.sub
		m.sub = nil
		m.mu.Unlock()

		if sub != nil {
			sub.Unsubscribe()
		}
	})
}

func (m *Manager) handleChange(event identity.Event, sess *identity.Session) {
	if !m.mounted.Load() {
		m.logger.Debug().Str("event", string(event)).Msg("ignoring session change after close")
		return
	}
	m.OnExternalChange(m.ctx, event, sess)
}
