// Package session keeps the single, process-wide view of who is logged in.
//
// A Manager owns the AuthState. It is driven by three sources that may
// overlap: the bootstrap session fetch, asynchronous change events from the
// identity backend, and explicit SignIn/SignOut calls. Every write is an
// idempotent projection of "what is the current session", so overlapping
// writes resolve as last-write-wins, with two exceptions:
//
//   - a local clear invalidates every applySession still enriching when the
//     clear commits;
//   - the result of a session fetch is dropped if any other transition
//     committed while the fetch was in flight.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/classify"
	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/jrsteele09/go-auth-session/retry"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBootstrapAttempts = 3
	DefaultSignInAttempts    = 2
	DefaultSignOutTimeout    = 5 * time.Second
)

// Manager is the session state store.
type Manager struct {
	backend  identity.Backend
	enricher *Enricher
	store    storage.Store
	markers  storage.Markers
	logger   zerolog.Logger
	alert    Alerter

	bootstrapAttempts int
	signInAttempts    int
	retryOptions      []retry.Option
	signOutTimeout    time.Duration
	signOutScope      identity.SignOutScope

	mu           sync.Mutex
	principal    *identity.Principal
	session      *identity.Session
	profile      *identity.ProfileRecord
	initializing bool
	pending      int    // sign-in/sign-out calls in flight
	epoch        uint64 // incremented by every local clear
	generation   uint64 // incremented by every session transition
	sub          identity.Subscription
	closed       bool

	notifyMu  sync.Mutex // serializes commits so observers see them in order
	obsMu     sync.RWMutex
	observers map[uuid.UUID]func(AuthState)

	started   atomic.Bool
	mounted   atomic.Bool
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

// Option defines a function type to modify the Manager instance.
type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithStorage sets the local store whose backend keys are purged on logout.
func WithStorage(store storage.Store, markers storage.Markers) Option {
	return func(m *Manager) {
		m.store = store
		m.markers = markers
	}
}

// WithAttempts overrides the bootstrap and sign-in retry budgets.
func WithAttempts(bootstrap, signIn int) Option {
	return func(m *Manager) {
		m.bootstrapAttempts = bootstrap
		m.signInAttempts = signIn
	}
}

// WithRetryOptions is passed through to every retry.Do call.
func WithRetryOptions(options ...retry.Option) Option {
	return func(m *Manager) {
		m.retryOptions = append(m.retryOptions, options...)
	}
}

func WithSignOutTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.signOutTimeout = d
	}
}

func WithSignOutScope(scope identity.SignOutScope) Option {
	return func(m *Manager) {
		m.signOutScope = scope
	}
}

// WithAlerter receives user facing connectivity alerts.
func WithAlerter(alert Alerter) Option {
	return func(m *Manager) {
		m.alert = alert
	}
}

// NewManager creates a Manager in the initializing state. profiles may be
// nil when no principal will ever carry the consultant role.
func NewManager(backend identity.Backend, profiles identity.ProfileRepo, options ...Option) (*Manager, error) {
	if backend == nil {
		return nil, errors.New("[NewManager] backend is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		backend:           backend,
		logger:            log.Logger,
		bootstrapAttempts: DefaultBootstrapAttempts,
		signInAttempts:    DefaultSignInAttempts,
		signOutTimeout:    DefaultSignOutTimeout,
		signOutScope:      identity.ScopeLocal,
		initializing:      true,
		observers:         make(map[uuid.UUID]func(AuthState)),
		ctx:               ctx,
		cancel:            cancel,
	}
	for _, opt := range options {
		opt(m)
	}
	m.retryOptions = append([]retry.Option{retry.WithLogger(m.logger)}, m.retryOptions...)
	m.enricher = NewEnricher(profiles, m.logger)
	return m, nil
}

// State returns a snapshot of the current AuthState.
func (m *Manager) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) CurrentPrincipal() *identity.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.principal
}

func (m *Manager) CurrentProfile() *identity.ProfileRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initializing || m.pending > 0
}

func (m *Manager) HasRole(role identity.Role) bool {
	return m.CurrentPrincipal().HasRole(role)
}

func (m *Manager) IsAdmin() bool {
	return m.HasRole(identity.RoleAdmin)
}

func (m *Manager) IsConsultant() bool {
	return m.HasRole(identity.RoleConsultant)
}

// Subscribe registers fn to receive a snapshot after every transition.
// fn runs on the goroutine that made the change and must not call SignIn,
// SignOut or RefreshUserData synchronously.
func (m *Manager) Subscribe(fn func(AuthState)) (unsubscribe func()) {
	id := uuid.New()
	m.obsMu.Lock()
	m.observers[id] = fn
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		defer m.obsMu.Unlock()
		delete(m.observers, id)
	}
}

// RefreshUserData refetches the current session and replays it, picking up
// role or profile changes without a restart.
func (m *Manager) RefreshUserData(ctx context.Context) {
	guard := m.fetchGuard()
	sess, err := m.backend.GetCurrentSession(ctx)
	m.resolveFetch(ctx, "refresh", guard, sess, err)
}

// OnExternalChange applies a transition reported by the backend.
func (m *Manager) OnExternalChange(ctx context.Context, event identity.Event, sess *identity.Session) {
	m.logger.Debug().Str("event", string(event)).Bool("has_user", sess.HasUser()).Msg("session change")
	if sess.HasUser() {
		m.applySession(ctx, sess.User, sess, m.eventGuard())
		return
	}
	m.clearState(nil)
}

func (m *Manager) bootstrap(ctx context.Context) {
	defer m.finishInitializing()

	guard := m.fetchGuard()
	sess, err := retry.Do(ctx, m.bootstrapAttempts, m.backend.GetCurrentSession, m.retryOptions...)
	m.resolveFetch(ctx, "bootstrap", guard, sess, err)
}

func (m *Manager) resolveFetch(ctx context.Context, op string, guard applyGuard, sess *identity.Session, err error) {
	if err != nil {
		m.handleFetchFailure(op, guard, err)
		return
	}
	if !sess.HasUser() {
		m.clearState(&guard)
		return
	}
	m.applySession(ctx, sess.User, sess, guard)
}

// handleFetchFailure converts a failed fetch into the unauthenticated state.
// Silent failures also purge persisted session keys and stay quiet; anything
// else is logged and raised as a connectivity alert.
func (m *Manager) handleFetchFailure(op string, guard applyGuard, err error) {
	c := classify.Classify(err)
	if c.Silent {
		m.logger.Info().Err(err).Str("operation", op).Str("reason", string(c.Reason)).Msg("session no longer valid")
		if m.clearState(&guard) {
			m.purgeStorage()
		}
		return
	}

	m.logger.Error().Err(err).
		Str("operation", op).
		Str("category", classify.CategoryOf(err).String()).
		Msg("unable to resolve session")
	m.clearState(&guard)
	if m.alert != nil {
		m.alert(classify.ConnectionErrorMessage)
	}
}

// applyGuard captures the counters an update was derived from.
type applyGuard struct {
	epoch      uint64
	generation uint64
	fetch      bool
}

func (m *Manager) eventGuard() applyGuard {
	m.mu.Lock()
	defer m.mu.Unlock()
	return applyGuard{epoch: m.epoch}
}

func (m *Manager) fetchGuard() applyGuard {
	m.mu.Lock()
	defer m.mu.Unlock()
	return applyGuard{epoch: m.epoch, generation: m.generation, fetch: true}
}

// staleLocked reports whether an update derived under g has been superseded.
func (m *Manager) staleLocked(g *applyGuard) bool {
	if g == nil {
		return false
	}
	if m.epoch != g.epoch {
		return true
	}
	return g.fetch && m.generation != g.generation
}

// applySession derives the role, enriches consultants and commits
// {principal, session, profile} in one step. Applying an equivalent session
// twice leaves an equal state.
func (m *Manager) applySession(ctx context.Context, raw *identity.Principal, sess *identity.Session, guard applyGuard) bool {
	principal := derivePrincipal(raw, sess)
	profile := m.enricher.Enrich(ctx, principal)

	stored := *sess
	stored.User = principal

	applied := m.commit(func() bool {
		if m.staleLocked(&guard) {
			return false
		}
		m.principal = principal
		m.session = &stored
		m.profile = profile
		m.generation++
		return true
	})
	if !applied {
		m.logger.Debug().Str("principal_id", principal.ID).Msg("dropped superseded session update")
	}
	return applied
}

// derivePrincipal copies raw with its role resolved from principal
// metadata, then session metadata, then whatever the backend already set.
func derivePrincipal(raw *identity.Principal, sess *identity.Session) *identity.Principal {
	role := identity.RoleFromMetadata(raw.Metadata)
	if role == "" && sess != nil {
		role = identity.RoleFromMetadata(sess.Metadata)
	}
	if role == "" {
		role = raw.Role
	}
	return raw.WithRole(role)
}

// clearState drops principal, session and profile. With a guard the clear
// only happens if nothing newer has committed.
func (m *Manager) clearState(guard *applyGuard) bool {
	return m.commit(func() bool {
		if m.staleLocked(guard) {
			return false
		}
		m.principal = nil
		m.session = nil
		m.profile = nil
		m.epoch++
		m.generation++
		return true
	})
}

func (m *Manager) purgeStorage() {
	storage.Purge(m.store, m.markers, m.logger)
}

func (m *Manager) finishInitializing() {
	m.commit(func() bool {
		if !m.initializing {
			return false
		}
		m.initializing = false
		return true
	})
}

func (m *Manager) beginPending() {
	m.commit(func() bool {
		m.pending++
		return true
	})
}

func (m *Manager) endPending() {
	m.commit(func() bool {
		if m.pending == 0 {
			return false
		}
		m.pending--
		return true
	})
}

// commit runs mutate under the state lock and, if it returns true, pushes
// the new snapshot to observers.
func (m *Manager) commit(mutate func() bool) bool {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if !mutate() {
		m.mu.Unlock()
		return false
	}
	st := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(st)
	return true
}

func (m *Manager) snapshotLocked() AuthState {
	st := AuthState{
		Principal: m.principal,
		Session:   m.session,
		Profile:   m.profile,
		Loading:   m.initializing || m.pending > 0,
	}
	switch {
	case m.principal != nil:
		st.Status = StatusAuthenticated
	case m.initializing:
		st.Status = StatusInitializing
	default:
		st.Status = StatusUnauthenticated
	}
	return st
}

func (m *Manager) notify(st AuthState) {
	m.obsMu.RLock()
	fns := make([]func(AuthState), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.obsMu.RUnlock()

	for _, fn := range fns {
		fn(st)
	}
}
