package identity

import "context"

// Event names a session transition reported by the backend.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
	EventUserUpdated    Event = "USER_UPDATED"
)

// ChangeHandler receives session transitions. session is nil after a sign out.
type ChangeHandler func(event Event, session *Session)

// Subscription is returned by Backend.SubscribeToSessionChanges.
type Subscription interface {
	Unsubscribe()
}

// Backend is the remote identity service.
type Backend interface {
	// GetCurrentSession returns the cached or refreshed session, or nil when
	// nobody is signed in.
	GetCurrentSession(ctx context.Context) (*Session, error)

	// SignInWithPassword authenticates with email and password. The returned
	// session's User is the authenticated principal.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignOut revokes the current session remotely.
	SignOut(ctx context.Context, scope SignOutScope) error

	// SubscribeToSessionChanges registers handler for asynchronous transitions.
	SubscribeToSessionChanges(handler ChangeHandler) Subscription
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() {
	f()
}
