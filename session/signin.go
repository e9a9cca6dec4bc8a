package session

import (
	"context"

	"github.com/jrsteele09/go-auth-session/classify"
	"github.com/jrsteele09/go-auth-session/identity"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/retry"
)

// SignIn authenticates with email and password. It never returns an error:
// failures come back as a result with a message for the login form.
// Loading is set for the duration of the call.
func (m *Manager) SignIn(ctx context.Context, email, password string) SignInResult {
	m.beginPending()
	defer m.endPending()

	sess, err := retry.Do(ctx, m.signInAttempts, func(ctx context.Context) (*identity.Session, error) {
		return m.backend.SignInWithPassword(ctx, email, password)
	}, m.retryOptions...)
	if err == nil && !sess.HasUser() {
		err = apperrors.ErrNoSession
	}
	if err != nil {
		m.logger.Warn().Err(err).
			Str("category", classify.CategoryOf(err).String()).
			Msg("sign in failed")
		return SignInResult{Error: classify.SignInMessage(err)}
	}

	if !m.applySession(ctx, sess.User, sess, m.eventGuard()) {
		m.logger.Warn().Str("principal_id", sess.User.ID).Msg("sign in superseded by a sign out")
		return SignInResult{Error: classify.SignInMessage(apperrors.ErrSessionSuperseded)}
	}
	m.logger.Info().Str("principal_id", sess.User.ID).Msg("signed in")
	return SignInResult{Success: true}
}
