package session

import (
	"context"
	"time"
)

// SignOut always leaves the local state cleared. The remote sign-out races
// a timeout; whichever settles first only decides what gets logged. A
// remote call that settles late is ignored.
func (m *Manager) SignOut(ctx context.Context) {
	m.beginPending()
	defer m.endPending()

	done := make(chan error, 1)
	remoteCtx := context.WithoutCancel(ctx)
	go func() {
		done <- m.backend.SignOut(remoteCtx, m.signOutScope)
	}()

	timer := time.NewTimer(m.signOutTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			m.logger.Warn().Err(err).Str("scope", string(m.signOutScope)).Msg("remote sign out failed")
		}
	case <-timer.C:
		m.logger.Warn().Dur("timeout", m.signOutTimeout).Msg("remote sign out timed out")
	case <-ctx.Done():
		m.logger.Warn().Err(ctx.Err()).Msg("stopped waiting for remote sign out")
	}

	m.clearLocal()
}

// clearLocal resets the AuthState then removes persisted backend session
// keys. It cannot fail.
func (m *Manager) clearLocal() {
	m.clearState(nil)
	m.purgeStorage()
	m.logger.Info().Msg("signed out locally")
}
