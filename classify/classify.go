// Package classify decides how the session manager reacts to a failed remote
// call: whether it may be retried, and whether it silently invalidates the
// local session.
//
// The identity backend reports failures as free text, so classification is a
// case-insensitive substring match against the tables below. Swap the tables
// for structured codes when the backend provides them; call sites only depend
// on Classify, CategoryOf and SignInMessage.
package classify

import (
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

// SilentReason records why a silent error invalidated the session. It is
// only ever logged.
type SilentReason string

const (
	ReasonNone     SilentReason = ""
	ReasonExpired  SilentReason = "expired"
	ReasonMissing  SilentReason = "missing"
	ReasonNetwork  SilentReason = "network"
	ReasonRejected SilentReason = "rejected"
)

// Classification is the result of Classify.
type Classification struct {
	NonRetryable bool
	Silent       bool
	Reason       SilentReason
}

type silentPattern struct {
	pattern string
	reason  SilentReason
}

var nonRetryablePatterns = []string{
	"invalid grant",
	"invalid_grant",
	"unauthorized",
	"forbidden",
	"invalid login credentials",
	"email not confirmed",
}

var silentPatterns = []silentPattern{
	{"refresh token not found", ReasonMissing},
	{"refresh_token_not_found", ReasonMissing},
	{"invalid refresh token", ReasonExpired},
	{"failed to fetch", ReasonNetwork},
	{"fetch failed", ReasonNetwork},
	{"aborted", ReasonNetwork},
	{"context canceled", ReasonNetwork},
	{"network error", ReasonNetwork},
}

// Classify categorizes err. A nil error is neither silent nor non-retryable.
// A rate-limited request is never retried.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}
	msg := strings.ToLower(err.Error())

	c := Classification{NonRetryable: isRateLimited(err)}
	for _, p := range nonRetryablePatterns {
		if strings.Contains(msg, p) {
			c.NonRetryable = true
			break
		}
	}
	for _, p := range silentPatterns {
		if strings.Contains(msg, p.pattern) {
			c.Silent = true
			c.Reason = p.reason
			break
		}
	}
	if !c.Silent {
		switch apperrors.StatusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			c.Silent = true
			c.Reason = ReasonRejected
		}
	}
	return c
}

// IsNonRetryable is the default retry predicate.
func IsNonRetryable(err error) bool {
	return Classify(err).NonRetryable
}

// IsSilent reports whether err should clear the session without alerting.
func IsSilent(err error) bool {
	return Classify(err).Silent
}
