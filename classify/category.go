package classify

import (
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

// Category places an error in the failure taxonomy used to decide what, if
// anything, the user is told.
type Category int

const (
	CategoryUnclassified Category = iota
	CategoryCredential
	CategoryRateLimit
	CategoryTransient
	CategorySessionInvalid
)

func (c Category) String() string {
	switch c {
	case CategoryCredential:
		return "credential"
	case CategoryRateLimit:
		return "rate_limit"
	case CategoryTransient:
		return "transient"
	case CategorySessionInvalid:
		return "session_invalid"
	default:
		return "unclassified"
	}
}

// User facing messages.
const (
	MessageInvalidCredentials = "Email ou senha incorretos"
	MessageEmailNotConfirmed  = "Email não confirmado"
	MessageRateLimited        = "Muitas tentativas, tente novamente mais tarde"
	ConnectionErrorMessage    = "Erro de conexão, verifique sua internet e tente novamente"
)

var rateLimitPatterns = []string{
	"too many requests",
	"rate limit",
}

var transientPatterns = []string{
	"timeout",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"eof",
}

var signInMessages = []struct {
	pattern string
	message string
}{
	{"invalid login credentials", MessageInvalidCredentials},
	{"email not confirmed", MessageEmailNotConfirmed},
}

// CategoryOf maps err onto the taxonomy. Silent errors win over credential
// errors so an expired session is never reported as a bad password.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryUnclassified
	}
	c := Classify(err)
	switch {
	case c.Silent && c.Reason != ReasonNetwork:
		return CategorySessionInvalid
	case isRateLimited(err):
		return CategoryRateLimit
	case c.NonRetryable:
		return CategoryCredential
	case c.Silent, isTransient(err):
		return CategoryTransient
	}
	return CategoryUnclassified
}

// SignInMessage converts a sign-in failure into the message shown on the
// login form. Unknown failures keep their raw message.
func SignInMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	for _, m := range signInMessages {
		if strings.Contains(msg, m.pattern) {
			return m.message
		}
	}
	if isRateLimited(err) {
		return MessageRateLimited
	}
	return err.Error()
}

func isRateLimited(err error) bool {
	if apperrors.StatusOf(err) == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func isTransient(err error) bool {
	if apperrors.StatusOf(err) >= http.StatusInternalServerError {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
