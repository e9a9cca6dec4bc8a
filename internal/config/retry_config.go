package config

import "time"

type RetryConfig interface {
	GetBootstrapAttempts() int
	GetSignInAttempts() int
	GetRetryBaseDelay() time.Duration
	GetRetryMaxDelay() time.Duration
}

type Retry struct{}

var _ RetryConfig = Retry{}

func (Retry) GetBootstrapAttempts() int {
	return GetEnvInt("BOOTSTRAP_ATTEMPTS", 3)
}

// GetSignInAttempts is lower than bootstrap: credential errors fail fast anyway.
func (Retry) GetSignInAttempts() int {
	return GetEnvInt("SIGN_IN_ATTEMPTS", 2)
}

func (Retry) GetRetryBaseDelay() time.Duration {
	return 1 * time.Second
}

func (Retry) GetRetryMaxDelay() time.Duration {
	return 5 * time.Second
}
