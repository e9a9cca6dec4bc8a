package config

import "time"

type Config interface {
	EnvConfig
	IdentityConfig
	RetryConfig
	LogoutConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetDataFolder() string
	GetLogLevel() string
	GetSessionFile() string
	GetSessionStorageKey() string
	GetProfileDatabasePath() string
}

type IdentityConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetScopes() []string
	GetRevocationURL() string
	GetRequireConfirmedEmail() bool
	GetHTTPTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Identity
	Retry
	Logout
}

func New() Config {
	return mainConfig{}
}
