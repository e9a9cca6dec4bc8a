package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/jrsteele09/go-auth-session/identity/oidcbackend"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/profiles"
	"github.com/jrsteele09/go-auth-session/retry"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/rs/zerolog"
)

// app holds the wired collaborators for one command invocation.
type app struct {
	store    *storage.FileStore
	profiles *profiles.SQLiteRepo
	backend  *oidcbackend.Backend
	manager  *session.Manager
}

func newApp(ctx context.Context, c config.Config, logger zerolog.Logger) (*app, error) {
	store, err := openSessionStore(c, logger)
	if err != nil {
		return nil, err
	}

	repo, err := profiles.Open(c.GetProfileDatabasePath())
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}

	backend, err := oidcbackend.Discover(ctx, c.GetIssuerURL(), oidcbackend.Config{
		ClientID:              c.GetClientID(),
		ClientSecret:          c.GetClientSecret(),
		Scopes:                c.GetScopes(),
		RevocationURL:         c.GetRevocationURL(),
		RequireConfirmedEmail: c.GetRequireConfirmedEmail(),
	}, store,
		oidcbackend.WithLogger(logger),
		oidcbackend.WithHTTPClient(&http.Client{Timeout: c.GetHTTPTimeout()}),
	)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("connecting to %s: %w", c.GetIssuerURL(), err)
	}

	manager, err := session.NewManager(backend, repo,
		session.WithLogger(logger),
		session.WithStorage(store, storageMarkers(c)),
		session.WithAttempts(c.GetBootstrapAttempts(), c.GetSignInAttempts()),
		session.WithRetryOptions(
			retry.WithBaseDelay(c.GetRetryBaseDelay()),
			retry.WithMaxDelay(c.GetRetryMaxDelay()),
		),
		session.WithSignOutTimeout(c.GetSignOutTimeout()),
		session.WithSignOutScope(identity.ParseSignOutScope(c.GetSignOutScope())),
		session.WithAlerter(func(msg string) {
			logger.Warn().Msg(msg)
		}),
	)
	if err != nil {
		backend.Close()
		_ = repo.Close()
		return nil, err
	}

	return &app{
		store:    store,
		profiles: repo,
		backend:  backend,
		manager:  manager,
	}, nil
}

// openSessionStore opens SESSION_FILE, sealed when SESSION_STORAGE_KEY is set.
func openSessionStore(c config.Config, logger zerolog.Logger) (*storage.FileStore, error) {
	key, err := storage.ParseKey(c.GetSessionStorageKey())
	if err != nil {
		return nil, err
	}
	storeOptions := []storage.FileStoreOption{storage.WithLogger(logger)}
	if key != nil {
		storeOptions = append(storeOptions, storage.WithKey(key))
	}
	return storage.NewFileStore(c.GetSessionFile(), storeOptions...)
}

func storageMarkers(c config.Config) storage.Markers {
	return storage.Markers{
		Prefixes:   c.GetStorageKeyPrefixes(),
		Substrings: c.GetStorageKeySubstrings(),
	}
}

// start resolves the cached session.
func (a *app) start(ctx context.Context) session.AuthState {
	a.manager.Start(ctx)
	return a.manager.State()
}

func (a *app) Close() {
	a.manager.Close()
	a.backend.Close()
	if err := a.profiles.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing profile database")
	}
}
