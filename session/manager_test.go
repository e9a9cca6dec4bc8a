package session_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/classify"
	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/jrsteele09/go-auth-session/identity/backendfake"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	fakeprofilerepo "github.com/jrsteele09/go-auth-session/profiles/repofake"
	"github.com/jrsteele09/go-auth-session/retry"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testConsultantID = "user-consultant-1"
	testAdminID      = "user-admin-1"
	testEmail        = "ana@example.com"
	testPassword     = "password123"
	backendTokenKey  = "idp-session-manager-auth-token"
	unrelatedKey     = "theme"
)

var testMarkers = storage.Markers{
	Prefixes:   []string{"idp-"},
	Substrings: []string{"auth-token"},
}

// testFixture holds all test dependencies
type testFixture struct {
	backend  *backendfake.FakeBackend
	profiles *fakeprofilerepo.FakeProfileRepo
	store    *storage.MemoryStore
	manager  *session.Manager

	lock   sync.Mutex
	waits  []time.Duration
	alerts []string
}

func setupTestFixture(t *testing.T, options ...session.Option) *testFixture {
	t.Helper()

	f := &testFixture{
		backend:  backendfake.NewFakeBackend(),
		profiles: fakeprofilerepo.NewFakeProfileRepo(),
		store:    storage.NewMemoryStore(),
	}
	require.NoError(t, f.store.Set(backendTokenKey, `{"access_token":"a"}`))
	require.NoError(t, f.store.Set(unrelatedKey, "dark"))

	opts := []session.Option{
		session.WithLogger(zerolog.Nop()),
		session.WithStorage(f.store, testMarkers),
		session.WithSignOutTimeout(100 * time.Millisecond),
		session.WithRetryOptions(retry.WithSleep(f.sleep)),
		session.WithAlerter(f.alert),
	}
	opts = append(opts, options...)

	m, err := session.NewManager(f.backend, f.profiles, opts...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	f.manager = m
	return f
}

func (f *testFixture) sleep(_ context.Context, d time.Duration) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.waits = append(f.waits, d)
	return nil
}

func (f *testFixture) alert(msg string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.alerts = append(f.alerts, msg)
}

func (f *testFixture) recordedWaits() []time.Duration {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]time.Duration(nil), f.waits...)
}

func (f *testFixture) recordedAlerts() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.alerts...)
}

func (f *testFixture) storedKeys(t *testing.T) []string {
	t.Helper()
	keys, err := f.store.Keys()
	require.NoError(t, err)
	return keys
}

// startUnauthenticated resolves bootstrap with no session.
func (f *testFixture) startUnauthenticated(t *testing.T) {
	t.Helper()
	f.manager.Start(context.Background())
	require.Equal(t, session.StatusUnauthenticated, f.manager.State().Status)
}

func consultantSession() *identity.Session {
	return &identity.Session{
		AccessToken:  "access-consultant",
		RefreshToken: "refresh-consultant",
		ExpiresAt:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		User: &identity.Principal{
			ID:       testConsultantID,
			Email:    testEmail,
			Metadata: map[string]any{"role": "consultant"},
		},
	}
}

func adminSessionWithEmbeddedRole() *identity.Session {
	return &identity.Session{
		AccessToken: "access-admin",
		User:        &identity.Principal{ID: testAdminID, Email: "admin@example.com"},
		Metadata:    map[string]any{"app_metadata": map[string]any{"role": "admin"}},
	}
}

func consultantProfile() *identity.ProfileRecord {
	return &identity.ProfileRecord{
		ID:          7,
		Name:        "Ana Souza",
		Email:       testEmail,
		Phone:       "+55 11 90000-0000",
		Active:      true,
		PrincipalID: testConsultantID,
	}
}

func TestNewManager(t *testing.T) {
	_, err := session.NewManager(nil, nil)
	require.Error(t, err)
}

func TestRoleChecksWhileInitializing(t *testing.T) {
	f := setupTestFixture(t)

	st := f.manager.State()
	require.Equal(t, session.StatusInitializing, st.Status)
	require.True(t, st.Loading)
	require.True(t, f.manager.IsLoading())
	require.False(t, f.manager.IsAdmin())
	require.False(t, f.manager.IsConsultant())
	require.False(t, f.manager.HasRole(identity.RoleConsultant))
	require.Nil(t, f.manager.CurrentPrincipal())
}

func TestBootstrap(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		f := setupTestFixture(t)
		f.manager.Start(context.Background())

		st := f.manager.State()
		require.Equal(t, session.StatusUnauthenticated, st.Status)
		require.False(t, st.Loading)
		require.Equal(t, 1, f.backend.GetCalls())
	})

	t.Run("recovers on third attempt", func(t *testing.T) {
		f := setupTestFixture(t)
		f.profiles.Upsert(consultantProfile())
		f.backend.GetCurrentSessionFunc = func(_ context.Context, attempt int) (*identity.Session, error) {
			if attempt < 3 {
				return nil, errors.New("read tcp: connection reset by peer")
			}
			return consultantSession(), nil
		}

		f.manager.Start(context.Background())

		st := f.manager.State()
		require.Equal(t, session.StatusAuthenticated, st.Status)
		require.False(t, st.Loading)
		require.Equal(t, 3, f.backend.GetCalls())
		require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.recordedWaits())
		require.Equal(t, consultantProfile(), st.Profile)
		require.Empty(t, f.recordedAlerts())
	})

	t.Run("transient failures degrade to unauthenticated", func(t *testing.T) {
		f := setupTestFixture(t)
		f.backend.GetCurrentSessionFunc = func(context.Context, int) (*identity.Session, error) {
			return nil, errors.New("dial tcp: connection refused")
		}

		f.manager.Start(context.Background())

		st := f.manager.State()
		require.Equal(t, session.StatusUnauthenticated, st.Status)
		require.False(t, st.Loading)
		require.Equal(t, 3, f.backend.GetCalls())
		require.Equal(t, []string{classify.ConnectionErrorMessage}, f.recordedAlerts())
		require.Contains(t, f.storedKeys(t), backendTokenKey)
	})

	t.Run("silent failure clears storage without alert", func(t *testing.T) {
		f := setupTestFixture(t)
		f.backend.GetCurrentSessionFunc = func(context.Context, int) (*identity.Session, error) {
			return nil, apperrors.WithStatus(http.StatusUnauthorized, errors.New("jwt expired"))
		}

		f.manager.Start(context.Background())

		st := f.manager.State()
		require.Equal(t, session.StatusUnauthenticated, st.Status)
		require.False(t, st.Loading)
		require.Empty(t, f.recordedAlerts())
		require.Equal(t, []string{unrelatedKey}, f.storedKeys(t))
	})

	t.Run("refresh token errors are silent", func(t *testing.T) {
		f := setupTestFixture(t, session.WithAttempts(1, 1))
		f.backend.GetCurrentSessionFunc = func(context.Context, int) (*identity.Session, error) {
			return nil, apperrors.ErrRefreshTokenNotFound
		}

		f.manager.Start(context.Background())

		require.Equal(t, 1, f.backend.GetCalls())
		require.Empty(t, f.recordedAlerts())
		require.Equal(t, []string{unrelatedKey}, f.storedKeys(t))
	})

	t.Run("start twice bootstraps once", func(t *testing.T) {
		f := setupTestFixture(t)
		f.manager.Start(context.Background())
		f.manager.Start(context.Background())
		require.Equal(t, 1, f.backend.GetCalls())
		require.Equal(t, 1, f.backend.Subscribers())
	})
}

func TestBootstrapResultSupersededByEvent(t *testing.T) {
	f := setupTestFixture(t)

	release := make(chan struct{})
	f.backend.GetCurrentSessionFunc = func(context.Context, int) (*identity.Session, error) {
		<-release
		return nil, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.manager.Start(context.Background())
	}()
	require.Eventually(t, func() bool { return f.backend.GetCalls() == 1 }, time.Second, 5*time.Millisecond)

	f.backend.Emit(identity.EventSignedIn, adminSessionWithEmbeddedRole())
	close(release)
	<-done

	st := f.manager.State()
	require.Equal(t, session.StatusAuthenticated, st.Status)
	require.False(t, st.Loading)
	require.True(t, f.manager.IsAdmin())
}

func TestSignIn(t *testing.T) {
	t.Run("invalid credentials fail fast", func(t *testing.T) {
		f := setupTestFixture(t)
		f.startUnauthenticated(t)
		f.backend.SignInWithPasswordFunc = func(context.Context, string, string, int) (*identity.Session, error) {
			return nil, errors.New("Invalid login credentials")
		}

		res := f.manager.SignIn(context.Background(), "bad@x.com", "wrong")

		require.Equal(t, session.SignInResult{Success: false, Error: "Email ou senha incorretos"}, res)
		require.Equal(t, 1, f.backend.SignInCalls())
		require.Empty(t, f.recordedWaits())
		require.False(t, f.manager.IsLoading())
		require.Nil(t, f.manager.CurrentPrincipal())
	})

	t.Run("consultant is enriched", func(t *testing.T) {
		f := setupTestFixture(t)
		f.startUnauthenticated(t)
		f.profiles.Upsert(consultantProfile())
		f.backend.SignInWithPasswordFunc = func(_ context.Context, email, password string, _ int) (*identity.Session, error) {
			require.Equal(t, testEmail, email)
			require.Equal(t, testPassword, password)
			return consultantSession(), nil
		}

		res := f.manager.SignIn(context.Background(), testEmail, testPassword)

		require.True(t, res.Success)
		require.Empty(t, res.Error)
		require.Equal(t, identity.RoleConsultant, f.manager.CurrentPrincipal().Role)
		require.Equal(t, consultantProfile(), f.manager.CurrentProfile())
		require.True(t, f.manager.IsConsultant())
		require.False(t, f.manager.IsAdmin())
		require.False(t, f.manager.IsLoading())

		st := f.manager.State()
		require.Equal(t, session.StatusAuthenticated, st.Status)
		require.Same(t, st.Principal, st.Session.User)
	})

	t.Run("role falls back to session metadata", func(t *testing.T) {
		f := setupTestFixture(t)
		f.startUnauthenticated(t)
		f.backend.SignInWithPasswordFunc = func(context.Context, string, string, int) (*identity.Session, error) {
			return adminSessionWithEmbeddedRole(), nil
		}

		require.True(t, f.manager.SignIn(context.Background(), "admin@example.com", testPassword).Success)
		require.True(t, f.manager.IsAdmin())
		require.Nil(t, f.manager.CurrentProfile())
		require.Zero(t, f.profiles.Calls())
	})

	t.Run("transient error retried once", func(t *testing.T) {
		f := setupTestFixture(t)
		f.startUnauthenticated(t)
		f.backend.SignInWithPasswordFunc = func(_ context.Context, _, _ string, attempt int) (*identity.Session, error) {
			if attempt == 1 {
				return nil, apperrors.ErrNetwork
			}
			return consultantSession(), nil
		}

		require.True(t, f.manager.SignIn(context.Background(), testEmail, testPassword).Success)
		require.Equal(t, 2, f.backend.SignInCalls())
		require.Equal(t, []time.Duration{time.Second}, f.recordedWaits())
	})

	t.Run("rate limited is not retried", func(t *testing.T) {
		f := setupTestFixture(t)
		f.startUnauthenticated(t)
		f.backend.SignInWithPasswordFunc = func(context.Context, string, string, int) (*identity.Session, error) {
			return nil, apperrors.WithStatus(http.StatusTooManyRequests, apperrors.ErrRateLimited)
		}

		res := f.manager.SignIn(context.Background(), testEmail, testPassword)

		require.Equal(t, session.SignInResult{Success: false, Error: classify.MessageRateLimited}, res)
		require.Equal(t, 1, f.backend.SignInCalls())
		require.Empty(t, f.recordedWaits())
	})

	t.Run("sign out during enrichment fails the sign in", func(t *testing.T) {
		f := setupTestFixture(t)
		f.startUnauthenticated(t)
		f.profiles.Upsert(consultantProfile())
		release := f.profiles.Block()
		f.backend.SignInWithPasswordFunc = func(context.Context, string, string, int) (*identity.Session, error) {
			return consultantSession(), nil
		}

		results := make(chan session.SignInResult, 1)
		go func() {
			results <- f.manager.SignIn(context.Background(), testEmail, testPassword)
		}()
		require.Eventually(t, func() bool { return f.profiles.Calls() == 1 }, time.Second, 5*time.Millisecond)

		f.manager.SignOut(context.Background())
		release()
		res := <-results

		require.False(t, res.Success)
		require.Equal(t, apperrors.ErrSessionSuperseded.Error(), res.Error)
		require.Equal(t, session.StatusUnauthenticated, f.manager.State().Status)
		require.Nil(t, f.manager.CurrentPrincipal())
		require.False(t, f.manager.IsLoading())
	})

	t.Run("message mapping", func(t *testing.T) {
		tests := []struct {
			err      error
			expected string
		}{
			{apperrors.ErrEmailNotConfirmed, classify.MessageEmailNotConfirmed},
			{apperrors.WithStatus(http.StatusTooManyRequests, apperrors.ErrRateLimited), classify.MessageRateLimited},
			{errors.New("service unavailable"), "service unavailable"},
		}
		for _, tc := range tests {
			f := setupTestFixture(t, session.WithAttempts(1, 1))
			f.startUnauthenticated(t)
			f.backend.SignInWithPasswordFunc = func(context.Context, string, string, int) (*identity.Session, error) {
				return nil, tc.err
			}
			res := f.manager.SignIn(context.Background(), testEmail, testPassword)
			require.False(t, res.Success)
			require.Equal(t, tc.expected, res.Error)
		}
	})

	t.Run("empty session is a failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.startUnauthenticated(t)
		f.backend.SignInWithPasswordFunc = func(context.Context, string, string, int) (*identity.Session, error) {
			return &identity.Session{AccessToken: "a"}, nil
		}

		res := f.manager.SignIn(context.Background(), testEmail, testPassword)
		require.False(t, res.Success)
		require.Equal(t, apperrors.ErrNoSession.Error(), res.Error)
	})

	t.Run("loading toggles around the call", func(t *testing.T) {
		f := setupTestFixture(t)
		f.startUnauthenticated(t)
		f.backend.SignInWithPasswordFunc = func(context.Context, string, string, int) (*identity.Session, error) {
			require.True(t, f.manager.IsLoading())
			return consultantSession(), nil
		}

		var loading []bool
		unsubscribe := f.manager.Subscribe(func(st session.AuthState) {
			loading = append(loading, st.Loading)
		})
		defer unsubscribe()

		f.manager.SignIn(context.Background(), testEmail, testPassword)

		require.NotEmpty(t, loading)
		require.True(t, loading[0])
		require.False(t, loading[len(loading)-1])
	})
}

func TestSignOut(t *testing.T) {
	signedIn := func(t *testing.T) *testFixture {
		t.Helper()
		f := setupTestFixture(t)
		f.backend.SetSession(consultantSession())
		f.manager.Start(context.Background())
		require.True(t, f.manager.State().Authenticated())
		return f
	}

	t.Run("remote success", func(t *testing.T) {
		f := signedIn(t)
		f.manager.SignOut(context.Background())

		st := f.manager.State()
		require.Equal(t, session.StatusUnauthenticated, st.Status)
		require.Nil(t, st.Principal)
		require.Nil(t, st.Session)
		require.Nil(t, st.Profile)
		require.False(t, st.Loading)
		require.Equal(t, 1, f.backend.SignOutCalls())
		require.Equal(t, []string{unrelatedKey}, f.storedKeys(t))
	})

	t.Run("remote failure still clears", func(t *testing.T) {
		f := signedIn(t)
		f.backend.SignOutFunc = func(context.Context, identity.SignOutScope) error {
			return apperrors.ErrNetwork
		}

		f.manager.SignOut(context.Background())

		require.Nil(t, f.manager.CurrentPrincipal())
		require.False(t, f.manager.IsLoading())
		require.Equal(t, []string{unrelatedKey}, f.storedKeys(t))
		require.Empty(t, f.recordedAlerts())
	})

	t.Run("remote hang bounded by timeout", func(t *testing.T) {
		f := signedIn(t)
		hang := make(chan struct{})
		defer close(hang)
		f.backend.SignOutFunc = func(context.Context, identity.SignOutScope) error {
			<-hang
			return nil
		}

		start := time.Now()
		f.manager.SignOut(context.Background())

		require.Less(t, time.Since(start), 2*time.Second)
		require.Nil(t, f.manager.CurrentPrincipal())
		require.Equal(t, []string{unrelatedKey}, f.storedKeys(t))
		require.False(t, f.manager.IsLoading())
	})

	t.Run("late remote outcome is ignored", func(t *testing.T) {
		f := signedIn(t)
		release := make(chan struct{})
		finished := make(chan struct{})
		f.backend.SignOutFunc = func(context.Context, identity.SignOutScope) error {
			defer close(finished)
			<-release
			return errors.New("revocation failed")
		}
		f.backend.SignInWithPasswordFunc = func(context.Context, string, string, int) (*identity.Session, error) {
			return consultantSession(), nil
		}

		f.manager.SignOut(context.Background())
		require.True(t, f.manager.SignIn(context.Background(), testEmail, testPassword).Success)

		close(release)
		<-finished
		require.True(t, f.manager.State().Authenticated())
	})

	t.Run("cancelled caller context still clears", func(t *testing.T) {
		f := signedIn(t)
		hang := make(chan struct{})
		defer close(hang)
		remoteErrs := make(chan error, 1)
		f.backend.SignOutFunc = func(ctx context.Context, _ identity.SignOutScope) error {
			remoteErrs <- ctx.Err()
			<-hang
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f.manager.SignOut(ctx)
		require.Nil(t, f.manager.CurrentPrincipal())
		require.NoError(t, <-remoteErrs)
	})

	t.Run("scope is passed through", func(t *testing.T) {
		f := setupTestFixture(t, session.WithSignOutScope(identity.ScopeGlobal))
		f.startUnauthenticated(t)
		scopes := make(chan identity.SignOutScope, 1)
		f.backend.SignOutFunc = func(_ context.Context, scope identity.SignOutScope) error {
			scopes <- scope
			return nil
		}
		f.manager.SignOut(context.Background())
		require.Equal(t, identity.ScopeGlobal, <-scopes)
	})
}

func TestSignOutWinsOverInflightEnrichment(t *testing.T) {
	f := setupTestFixture(t)
	f.startUnauthenticated(t)
	f.profiles.Upsert(consultantProfile())
	release := f.profiles.Block()

	applied := make(chan struct{})
	go func() {
		defer close(applied)
		f.backend.Emit(identity.EventSignedIn, consultantSession())
	}()
	require.Eventually(t, func() bool { return f.profiles.Calls() == 1 }, time.Second, 5*time.Millisecond)

	f.manager.SignOut(context.Background())
	release()
	<-applied

	require.Equal(t, session.StatusUnauthenticated, f.manager.State().Status)
	require.Nil(t, f.manager.CurrentProfile())
}

func TestOnExternalChange(t *testing.T) {
	t.Run("applying the same session twice equals once", func(t *testing.T) {
		once := setupTestFixture(t)
		once.startUnauthenticated(t)
		once.profiles.Upsert(consultantProfile())
		once.manager.OnExternalChange(context.Background(), identity.EventSignedIn, consultantSession())

		twice := setupTestFixture(t)
		twice.startUnauthenticated(t)
		twice.profiles.Upsert(consultantProfile())
		twice.manager.OnExternalChange(context.Background(), identity.EventSignedIn, consultantSession())
		twice.manager.OnExternalChange(context.Background(), identity.EventTokenRefreshed, consultantSession())

		require.Equal(t, once.manager.State(), twice.manager.State())
		require.Equal(t, consultantProfile(), twice.manager.CurrentProfile())
	})

	t.Run("overlapping changes share one profile lookup", func(t *testing.T) {
		f := setupTestFixture(t)
		f.startUnauthenticated(t)
		f.profiles.Upsert(consultantProfile())
		release := f.profiles.Block()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.manager.OnExternalChange(context.Background(), identity.EventSignedIn, consultantSession())
		}()
		require.Eventually(t, func() bool { return f.profiles.Calls() == 1 }, time.Second, 5*time.Millisecond)
		go func() {
			defer wg.Done()
			f.manager.OnExternalChange(context.Background(), identity.EventInitialSession, consultantSession())
		}()
		time.Sleep(50 * time.Millisecond)
		release()
		wg.Wait()

		require.Equal(t, 1, f.profiles.Calls())
		require.Equal(t, consultantProfile(), f.manager.CurrentProfile())
	})

	t.Run("signed out event clears", func(t *testing.T) {
		f := setupTestFixture(t)
		f.backend.SetSession(consultantSession())
		f.manager.Start(context.Background())
		require.True(t, f.manager.IsConsultant())

		f.backend.Emit(identity.EventSignedOut, nil)

		require.Equal(t, session.StatusUnauthenticated, f.manager.State().Status)
		require.False(t, f.manager.IsConsultant())
		require.Contains(t, f.storedKeys(t), backendTokenKey)
	})

	t.Run("profile lookup failure keeps principal", func(t *testing.T) {
		f := setupTestFixture(t)
		f.startUnauthenticated(t)
		f.profiles.FailWith(errors.New("database is locked"))

		f.backend.Emit(identity.EventSignedIn, consultantSession())

		require.True(t, f.manager.IsConsultant())
		require.Nil(t, f.manager.CurrentProfile())
	})
}

// capturingBackend keeps the handler after unsubscribe so tests can deliver
// events that arrive after Close.
type capturingBackend struct {
	*backendfake.FakeBackend
	handler identity.ChangeHandler
}

func (b *capturingBackend) SubscribeToSessionChanges(handler identity.ChangeHandler) identity.Subscription {
	b.handler = handler
	return b.FakeBackend.SubscribeToSessionChanges(handler)
}

func TestListenerLifecycle(t *testing.T) {
	backend := &capturingBackend{FakeBackend: backendfake.NewFakeBackend()}
	m, err := session.NewManager(backend, fakeprofilerepo.NewFakeProfileRepo(), session.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	m.Start(context.Background())
	require.Equal(t, 1, backend.Subscribers())

	backend.Emit(identity.EventSignedIn, adminSessionWithEmbeddedRole())
	require.True(t, m.IsAdmin())

	m.Close()
	m.Close()
	require.Equal(t, 1, backend.Unsubscribes())
	require.Zero(t, backend.Subscribers())

	backend.handler(identity.EventSignedOut, nil)
	require.True(t, m.IsAdmin())
}

func TestCloseBeforeStart(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Close()
	f.manager.Start(context.Background())

	require.Zero(t, f.backend.Subscribers())
	require.Zero(t, f.backend.GetCalls())
}

func TestRefreshUserData(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SetSession(consultantSession())
	f.manager.Start(context.Background())
	require.True(t, f.manager.IsConsultant())
	require.Nil(t, f.manager.CurrentProfile())

	f.profiles.Upsert(consultantProfile())
	f.manager.RefreshUserData(context.Background())
	require.Equal(t, consultantProfile(), f.manager.CurrentProfile())

	f.backend.SetSession(nil)
	f.manager.RefreshUserData(context.Background())
	require.Equal(t, session.StatusUnauthenticated, f.manager.State().Status)

	f.backend.GetCurrentSessionFunc = func(context.Context, int) (*identity.Session, error) {
		return nil, errors.New("upstream exploded")
	}
	f.manager.RefreshUserData(context.Background())
	require.Equal(t, session.StatusUnauthenticated, f.manager.State().Status)
	require.Equal(t, []string{classify.ConnectionErrorMessage}, f.recordedAlerts())
}

func TestSubscribe(t *testing.T) {
	f := setupTestFixture(t)

	var statuses []session.Status
	unsubscribe := f.manager.Subscribe(func(st session.AuthState) {
		statuses = append(statuses, st.Status)
	})

	f.backend.SetSession(consultantSession())
	f.manager.Start(context.Background())
	require.Equal(t, []session.Status{session.StatusAuthenticated, session.StatusAuthenticated}, statuses)

	unsubscribe()
	f.manager.SignOut(context.Background())
	require.Len(t, statuses, 2)
}
