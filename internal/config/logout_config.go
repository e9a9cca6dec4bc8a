package config

import (
	"strings"
	"time"
)

type LogoutConfig interface {
	GetSignOutTimeout() time.Duration
	GetSignOutScope() string
	GetStorageKeyPrefixes() StorageMarkers
	GetStorageKeySubstrings() StorageMarkers
}

// StorageMarkers identify persisted keys owned by the identity backend.
type StorageMarkers []string

func (m StorageMarkers) String() string {
	return strings.Join(m, ", ")
}

type Logout struct{}

var _ LogoutConfig = Logout{}

func (Logout) GetSignOutTimeout() time.Duration {
	return GetEnvDuration("SIGN_OUT_TIMEOUT", 5*time.Second)
}

func (Logout) GetSignOutScope() string {
	return GetEnv("SIGN_OUT_SCOPE", "local")
}

func (Logout) GetStorageKeyPrefixes() StorageMarkers {
	return GetEnvList("STORAGE_KEY_PREFIXES", []string{"idp-"})
}

func (Logout) GetStorageKeySubstrings() StorageMarkers {
	return GetEnvList("STORAGE_KEY_SUBSTRINGS", []string{"auth-token", "code-verifier"})
}
