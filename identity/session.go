package identity

import "time"

// Session is the credential bundle issued by the identity backend. The
// manager never inspects the tokens, it only tracks presence.
type Session struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	IDToken      string         `json:"id_token,omitempty"`
	TokenType    string         `json:"token_type,omitempty"`
	ExpiresAt    time.Time      `json:"expires_at"`
	User         *Principal     `json:"user,omitempty"`     // Principal the session authenticates
	Metadata     map[string]any `json:"metadata,omitempty"` // Claims embedded in the access token
}

// HasUser reports whether the session authenticates a principal.
func (s *Session) HasUser() bool {
	return s != nil && s.User != nil && s.User.ID != ""
}

// Expired reports whether the access token is past its expiry. A zero
// expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SignOutScope selects which sessions a remote sign-out revokes.
type SignOutScope string

const (
	ScopeLocal  SignOutScope = "local"  // This session only
	ScopeGlobal SignOutScope = "global" // Every session of the principal
	ScopeOthers SignOutScope = "others" // Every session except this one
)

// ParseSignOutScope falls back to ScopeLocal for unknown values.
func ParseSignOutScope(s string) SignOutScope {
	switch SignOutScope(s) {
	case ScopeGlobal, ScopeOthers:
		return SignOutScope(s)
	}
	return ScopeLocal
}
