package oidcbackend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/identity"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// registered claims that are not copied into principal metadata
var protocolClaims = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "iat": {}, "nbf": {}, "jti": {},
	"nonce": {}, "at_hash": {}, "c_hash": {}, "azp": {}, "auth_time": {}, "sid": {},
}

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
}

// sessionFromToken verifies the ID token carried by tok and builds a session.
// A refresh response without an ID token keeps the principal of previous. The
// second result reports whether the provider asserted a verified email.
func (b *Backend) sessionFromToken(ctx context.Context, tok *oauth2.Token, previous *storedSession) (*identity.Session, bool, error) {
	rawIDToken, _ := tok.Extra("id_token").(string)

	var (
		user     *identity.Principal
		verified bool
	)
	switch {
	case rawIDToken != "":
		idToken, err := b.config.Verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return nil, false, apperrors.WithStatus(http.StatusUnauthorized, errors.Wrap(err, "[Backend.sessionFromToken] verify id token"))
		}
		var claims idClaims
		var all map[string]any
		if err := idToken.Claims(&claims); err != nil {
			return nil, false, errors.Wrap(err, "[Backend.sessionFromToken] decode claims")
		}
		if err := idToken.Claims(&all); err != nil {
			return nil, false, errors.Wrap(err, "[Backend.sessionFromToken] decode claims")
		}
		user = &identity.Principal{
			ID:       idToken.Subject,
			Email:    claims.Email,
			Metadata: principalMetadata(all),
		}
		verified = utils.Value(claims.EmailVerified)
	case previous != nil:
		user = previous.User
		rawIDToken = previous.IDToken
	default:
		return nil, false, errors.Wrap(apperrors.ErrNoSession, "[Backend.sessionFromToken] token response has no id_token")
	}

	return &identity.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IDToken:      rawIDToken,
		TokenType:    tok.Type(),
		ExpiresAt:    tok.Expiry,
		User:         user,
		Metadata:     accessTokenMetadata(tok.AccessToken),
	}, verified, nil
}

func (b *Backend) sessionFromStored(stored *storedSession) *identity.Session {
	return &identity.Session{
		AccessToken:  stored.Token.AccessToken,
		RefreshToken: stored.Token.RefreshToken,
		IDToken:      stored.IDToken,
		TokenType:    stored.Token.Type(),
		ExpiresAt:    stored.Token.Expiry,
		User:         stored.User,
		Metadata:     accessTokenMetadata(stored.Token.AccessToken),
	}
}

func principalMetadata(claims map[string]any) map[string]any {
	md := make(map[string]any, len(claims))
	for k, v := range claims {
		if _, skip := protocolClaims[k]; skip {
			continue
		}
		md[k] = v
	}
	return md
}

// accessTokenMetadata reads the claims of a JWT access token without
// verifying it. The token was just received from, or is about to be sent
// to, the provider, so the claims are only used to resolve the role. Opaque
// tokens yield nil.
func accessTokenMetadata(accessToken string) map[string]any {
	if accessToken == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil
	}
	if _, ok := claims[identity.RoleMetadataKey]; !ok {
		for _, r := range utils.ToStringSlice(claims["roles"]) {
			if role := identity.Role(r); role == identity.RoleAdmin || role == identity.RoleConsultant {
				claims[identity.RoleMetadataKey] = r
				break
			}
		}
	}
	return claims
}

// translateTokenError maps a token endpoint failure onto the error sentinels.
// invalidGrant is used for an invalid_grant response.
func translateTokenError(err error, invalidGrant error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("[oidcbackend] token request: %v: %w", err, apperrors.ErrNetwork)
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	detail := re.ErrorCode
	if re.ErrorDescription != "" {
		detail += " " + re.ErrorDescription
	}

	var base error
	switch {
	case re.ErrorCode == "invalid_grant":
		base = invalidGrant
	case status == http.StatusTooManyRequests:
		base = apperrors.ErrRateLimited
	case status == http.StatusUnauthorized || re.ErrorCode == "invalid_client":
		base = apperrors.ErrUnauthorized
	case status == http.StatusForbidden:
		base = apperrors.ErrForbidden
	default:
		return apperrors.WithStatus(status, errors.Wrap(err, "[oidcbackend] token request"))
	}
	return apperrors.WithStatus(status, errors.Wrap(base, "[oidcbackend] "+detail))
}
