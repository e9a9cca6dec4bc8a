// Package oidcbackend implements identity.Backend against an OpenID Connect
// provider using the resource owner password grant. Tokens are cached in a
// storage.Store under a single key so a later process can resume the
// session; expired access tokens are refreshed on demand.
package oidcbackend

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/identity"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// StorageKeyPrefix marks every key this backend writes.
	StorageKeyPrefix = "idp-"

	// refresh this long before the access token actually expires
	expiryLeeway = 30 * time.Second

	eventBuffer = 64
)

var _ identity.Backend = (*Backend)(nil)

// Config describes the relying party.
type Config struct {
	ClientID              string
	ClientSecret          string
	Endpoint              oauth2.Endpoint
	Scopes                []string
	Verifier              *oidc.IDTokenVerifier
	RevocationURL         string // RFC 7009 endpoint; empty skips remote revocation
	RequireConfirmedEmail bool
}

type changeEvent struct {
	event   identity.Event
	session *identity.Session
}

// Backend is an identity.Backend backed by an OIDC provider.
type Backend struct {
	config     Config
	oauth      *oauth2.Config
	store      storage.Store
	storageKey string
	httpClient *http.Client
	logger     zerolog.Logger
	nowTime    func() time.Time

	sessionLock sync.Mutex // serializes reads and refreshes of the stored session
	current     string     // access token last persisted or observed

	handlerLock sync.RWMutex
	handlers    map[uuid.UUID]identity.ChangeHandler
	events      chan changeEvent
	done        chan struct{}
	closeOnce   sync.Once
}

// Option defines a function type to modify the Backend instance.
type Option func(*Backend)

func WithLogger(logger zerolog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// WithHTTPClient sets the client used for discovery, token and revocation
// requests.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Backend) {
		b.httpClient = client
	}
}

// WithNowTime sets the function used to get the current time (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(b *Backend) {
		b.nowTime = nowFunc
	}
}

// New creates a Backend. A nil store keeps tokens in memory only.
func New(config Config, store storage.Store, options ...Option) (*Backend, error) {
	if config.ClientID == "" {
		return nil, errors.New("[oidcbackend.New] client id is required")
	}
	if config.Endpoint.TokenURL == "" {
		return nil, errors.New("[oidcbackend.New] token endpoint is required")
	}
	if config.Verifier == nil {
		return nil, errors.New("[oidcbackend.New] id token verifier is required")
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	b := &Backend{
		config: config,
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     config.Endpoint,
			Scopes:       config.Scopes,
		},
		store:      store,
		storageKey: StorageKeyPrefix + config.ClientID + "-auth-token",
		httpClient: http.DefaultClient,
		logger:     log.Logger,
		nowTime:    time.Now,
		handlers:   make(map[uuid.UUID]identity.ChangeHandler),
		events:     make(chan changeEvent, eventBuffer),
		done:       make(chan struct{}),
	}
	for _, opt := range options {
		opt(b)
	}
	go b.dispatch()
	return b, nil
}

// Discover builds a Backend from the provider's discovery document. Endpoint,
// Verifier and RevocationURL are filled in unless already set on config.
func Discover(ctx context.Context, issuerURL string, config Config, store storage.Store, options ...Option) (*Backend, error) {
	discovery := &Backend{httpClient: http.DefaultClient}
	for _, opt := range options {
		opt(discovery)
	}
	ctx = oidc.ClientContext(ctx, discovery.httpClient)

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, apperrors.WithStatus(http.StatusServiceUnavailable, errors.Wrap(err, "[oidcbackend.Discover] provider discovery"))
	}

	var claims struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[oidcbackend.Discover] discovery claims")
	}

	if config.Endpoint.TokenURL == "" {
		config.Endpoint = provider.Endpoint()
	}
	if config.RevocationURL == "" {
		config.RevocationURL = claims.RevocationEndpoint
	}
	if config.Verifier == nil {
		config.Verifier = provider.Verifier(&oidc.Config{ClientID: config.ClientID})
	}
	if len(config.Scopes) == 0 {
		config.Scopes = []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess}
	}
	return New(config, store, options...)
}

// StorageKey is the key the session is persisted under.
func (b *Backend) StorageKey() string {
	return b.storageKey
}

// SubscribeToSessionChanges registers handler. Events are delivered in order
// on a single dispatcher goroutine.
func (b *Backend) SubscribeToSessionChanges(handler identity.ChangeHandler) identity.Subscription {
	id := uuid.New()
	b.handlerLock.Lock()
	b.handlers[id] = handler
	b.handlerLock.Unlock()

	return identity.SubscriptionFunc(func() {
		b.handlerLock.Lock()
		defer b.handlerLock.Unlock()
		delete(b.handlers, id)
	})
}

// Close stops event delivery.
func (b *Backend) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}

func (b *Backend) emit(event identity.Event, sess *identity.Session) {
	select {
	case b.events <- changeEvent{event: event, session: sess}:
	case <-b.done:
	}
}

func (b *Backend) dispatch() {
	for {
		select {
		case <-b.done:
			return
		case ev := <-b.events:
			b.handlerLock.RLock()
			handlers := make([]identity.ChangeHandler, 0, len(b.handlers))
			for _, h := range b.handlers {
				handlers = append(handlers, h)
			}
			b.handlerLock.RUnlock()

			b.logger.Debug().Str("event", string(ev.event)).Int("subscribers", len(handlers)).Msg("dispatching session change")
			for _, h := range handlers {
				h(ev.event, ev.session)
			}
		}
	}
}

func (b *Backend) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
}
