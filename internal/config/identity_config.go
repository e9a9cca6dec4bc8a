package config

import "time"

type Identity struct{}

var _ IdentityConfig = Identity{}

func (Identity) GetIssuerURL() string {
	return GetEnv("OIDC_ISSUER_URL", "http://localhost:8080")
}

func (Identity) GetClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "session-manager")
}

func (Identity) GetClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}

func (Identity) GetScopes() []string {
	return GetEnvList("OIDC_SCOPES", []string{"openid", "profile", "email", "offline_access"})
}

// GetRevocationURL overrides the revocation_endpoint advertised in discovery.
func (Identity) GetRevocationURL() string {
	return GetEnv("OIDC_REVOCATION_URL", "")
}

func (Identity) GetRequireConfirmedEmail() bool {
	return GetEnvBool("REQUIRE_CONFIRMED_EMAIL", true)
}

func (Identity) GetHTTPTimeout() time.Duration {
	return GetEnvDuration("HTTP_TIMEOUT", 15*time.Second)
}
