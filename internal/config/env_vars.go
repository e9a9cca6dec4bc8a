package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar    = "APP_NAME"
	folderEnvVar  = "DATA_FOLDER"
	logLevelVar   = "LOG_LEVEL"
	sessionFile   = "SESSION_FILE"
	sessionKeyVar = "SESSION_STORAGE_KEY"
	profileDBVar  = "PROFILE_DB_PATH"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Session Manager")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (e EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetSessionFile is where the identity backend caches its tokens between runs.
func (e EnvVars) GetSessionFile() string {
	return GetEnv(sessionFile, filepath.Join(e.GetDataFolder(), "session.json"))
}

// GetSessionStorageKey returns a hex encoded 32 byte key. Empty disables
// encryption of the persisted session.
func (EnvVars) GetSessionStorageKey() string {
	return GetEnv(sessionKeyVar, "")
}

func (e EnvVars) GetProfileDatabasePath() string {
	return GetEnv(profileDBVar, filepath.Join(e.GetDataFolder(), "profiles.db"))
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return b
}

func GetEnvInt(envVar string, defaultValue int) int {
	i, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return i
}

func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return d
}

// GetEnvList splits a comma separated variable, dropping empty entries.
func GetEnvList(envVar string, defaultValue []string) []string {
	raw := os.Getenv(envVar)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
