package oidcbackend

import (
	"context"
	"encoding/json"

	"github.com/jrsteele09/go-auth-session/identity"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// storedSession is the persisted form of a session.
type storedSession struct {
	Token   *oauth2.Token       `json:"token"`
	IDToken string              `json:"id_token,omitempty"`
	User    *identity.Principal `json:"user"`
}

// SignInWithPassword runs the password grant and persists the result.
func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	tok, err := b.oauth.PasswordCredentialsToken(b.clientContext(ctx), email, password)
	if err != nil {
		return nil, translateTokenError(err, apperrors.ErrInvalidCredentials)
	}

	sess, verified, err := b.sessionFromToken(ctx, tok, nil)
	if err != nil {
		return nil, err
	}
	if b.config.RequireConfirmedEmail && !verified {
		return nil, errors.Wrapf(apperrors.ErrEmailNotConfirmed, "[Backend.SignInWithPassword] %s", email)
	}

	b.sessionLock.Lock()
	err = b.persist(tok, sess)
	b.sessionLock.Unlock()
	if err != nil {
		return nil, err
	}

	b.logger.Info().Str("principal_id", sess.User.ID).Msg("password grant succeeded")
	b.emit(identity.EventSignedIn, sess)
	return sess, nil
}

// GetCurrentSession returns the persisted session, refreshing it first when
// the access token is about to expire. A refresh token the provider rejects
// removes the persisted session and reports SIGNED_OUT.
func (b *Backend) GetCurrentSession(ctx context.Context) (*identity.Session, error) {
	b.sessionLock.Lock()
	defer b.sessionLock.Unlock()

	stored, err := b.load()
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}

	if sess := b.sessionFromStored(stored); !sess.Expired(b.nowTime().Add(expiryLeeway)) {
		b.current = stored.Token.AccessToken
		return sess, nil
	}
	if stored.Token.RefreshToken == "" {
		b.dropLocked()
		return nil, apperrors.ErrRefreshTokenNotFound
	}

	src := b.oauth.TokenSource(b.clientContext(ctx), &oauth2.Token{RefreshToken: stored.Token.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		err = translateTokenError(err, apperrors.ErrInvalidRefreshToken)
		if errors.Is(err, apperrors.ErrInvalidRefreshToken) {
			b.dropLocked()
		}
		return nil, err
	}

	sess, _, err := b.sessionFromToken(ctx, tok, stored)
	if err != nil {
		return nil, err
	}
	if err := b.persist(tok, sess); err != nil {
		return nil, err
	}

	b.logger.Debug().Str("principal_id", sess.User.ID).Time("expires_at", sess.ExpiresAt).Msg("access token refreshed")
	b.emit(identity.EventTokenRefreshed, sess)
	return sess, nil
}

// SignOut removes the persisted session and reports SIGNED_OUT before
// revoking tokens remotely, so a slow provider never delays the local
// transition. ScopeOthers is not supported by token revocation.
func (b *Backend) SignOut(ctx context.Context, scope identity.SignOutScope) error {
	if scope == identity.ScopeOthers {
		return errors.Wrapf(apperrors.ErrUnsupported, "[Backend.SignOut] scope %s", scope)
	}

	b.sessionLock.Lock()
	stored, err := b.load()
	b.dropLocked()
	b.sessionLock.Unlock()
	if err != nil {
		return err
	}
	if stored == nil || b.config.RevocationURL == "" {
		return nil
	}

	if stored.Token.RefreshToken != "" {
		if err := b.revoke(ctx, stored.Token.RefreshToken, "refresh_token"); err != nil {
			return err
		}
	}
	if scope == identity.ScopeGlobal && stored.Token.AccessToken != "" {
		return b.revoke(ctx, stored.Token.AccessToken, "access_token")
	}
	return nil
}

func (b *Backend) load() (*storedSession, error) {
	raw, found, err := b.store.Get(b.storageKey)
	if errors.Is(err, storage.ErrDecrypt) {
		return b.discard(err), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Backend.load] read session")
	}
	if !found || raw == "" {
		return nil, nil
	}

	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return b.discard(err), nil
	}
	if stored.Token == nil || stored.User == nil || stored.User.ID == "" {
		return b.discard(errors.New("incomplete session")), nil
	}
	return &stored, nil
}

// discard removes a persisted session that cannot be used.
func (b *Backend) discard(reason error) *storedSession {
	b.logger.Warn().Err(reason).Str("key", b.storageKey).Msg("discarding unreadable persisted session")
	if err := b.store.Remove(b.storageKey); err != nil {
		b.logger.Warn().Err(err).Str("key", b.storageKey).Msg("unable to remove persisted session")
	}
	return nil
}

func (b *Backend) persist(tok *oauth2.Token, sess *identity.Session) error {
	data, err := json.Marshal(storedSession{
		Token:   tok,
		IDToken: sess.IDToken,
		User:    sess.User,
	})
	if err != nil {
		return errors.Wrap(err, "[Backend.persist] encode session")
	}
	if err := b.store.Set(b.storageKey, string(data)); err != nil {
		return errors.Wrap(err, "[Backend.persist] write session")
	}
	b.current = tok.AccessToken
	return nil
}

// dropLocked removes the persisted session and emits SIGNED_OUT. The caller
// holds sessionLock.
func (b *Backend) dropLocked() {
	if err := b.store.Remove(b.storageKey); err != nil {
		b.logger.Warn().Err(err).Str("key", b.storageKey).Msg("unable to remove persisted session")
	}
	b.current = ""
	b.emit(identity.EventSignedOut, nil)
}
