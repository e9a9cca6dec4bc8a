package session

import "github.com/jrsteele09/go-auth-session/identity"

// Status is the coarse authentication state.
type Status int

const (
	StatusInitializing Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// AuthState is a read-only snapshot of who is logged in. Principal and
// Session are always both set or both nil; Profile is only set for
// consultants.
type AuthState struct {
	Status    Status
	Principal *identity.Principal
	Session   *identity.Session
	Profile   *identity.ProfileRecord
	Loading   bool
}

// Authenticated reports whether a principal is signed in.
func (s AuthState) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// SignInResult is returned by Manager.SignIn. Error holds a message suitable
// for the login form when Success is false.
type SignInResult struct {
	Success bool
	Error   string
}

// Alerter shows a non-blocking notification (a toast) to the user.
type Alerter func(message string)
