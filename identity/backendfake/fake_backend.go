package backendfake

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/identity"
)

var _ identity.Backend = (*FakeBackend)(nil)

// FakeBackend is a scriptable identity.Backend. Each operation either runs
// the matching Func field or falls back to the stored session.
type FakeBackend struct {
	GetCurrentSessionFunc  func(ctx context.Context, attempt int) (*identity.Session, error)
	SignInWithPasswordFunc func(ctx context.Context, email, password string, attempt int) (*identity.Session, error)
	SignOutFunc            func(ctx context.Context, scope identity.SignOutScope) error

	lock         sync.Mutex
	session      *identity.Session
	handlers     map[uuid.UUID]identity.ChangeHandler
	getCalls     int
	signInCalls  int
	signOutCalls int
	unsubscribes int
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		handlers: make(map[uuid.UUID]identity.ChangeHandler),
	}
}

// SetSession sets the session returned when no Func override is configured.
func (b *FakeBackend) SetSession(s *identity.Session) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.session = s
}

func (b *FakeBackend) GetCurrentSession(ctx context.Context) (*identity.Session, error) {
	b.lock.Lock()
	b.getCalls++
	attempt := b.getCalls
	fn := b.GetCurrentSessionFunc
	s := b.session
	b.lock.Unlock()

	if fn != nil {
		return fn(ctx, attempt)
	}
	return s, nil
}

func (b *FakeBackend) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	b.lock.Lock()
	b.signInCalls++
	attempt := b.signInCalls
	fn := b.SignInWithPasswordFunc
	b.lock.Unlock()

	if fn == nil {
		b.lock.Lock()
		defer b.lock.Unlock()
		return b.session, nil
	}
	s, err := fn(ctx, email, password, attempt)
	if err == nil {
		b.SetSession(s)
	}
	return s, err
}

func (b *FakeBackend) SignOut(ctx context.Context, scope identity.SignOutScope) error {
	b.lock.Lock()
	b.signOutCalls++
	fn := b.SignOutFunc
	b.lock.Unlock()

	if fn != nil {
		return fn(ctx, scope)
	}
	b.SetSession(nil)
	return nil
}

func (b *FakeBackend) SubscribeToSessionChanges(handler identity.ChangeHandler) identity.Subscription {
	id := uuid.New()
	b.lock.Lock()
	b.handlers[id] = handler
	b.lock.Unlock()

	return identity.SubscriptionFunc(func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		delete(b.handlers, id)
		b.unsubscribes++
	})
}

// Emit delivers an event synchronously to every subscriber.
func (b *FakeBackend) Emit(event identity.Event, s *identity.Session) {
	b.lock.Lock()
	handlers := make([]identity.ChangeHandler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.lock.Unlock()

	for _, h := range handlers {
		h(event, s)
	}
}

func (b *FakeBackend) GetCalls() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.getCalls
}

func (b *FakeBackend) SignInCalls() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.signInCalls
}

func (b *FakeBackend) SignOutCalls() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.signOutCalls
}

func (b *FakeBackend) Subscribers() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.handlers)
}

func (b *FakeBackend) Unsubscribes() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.unsubscribes
}
