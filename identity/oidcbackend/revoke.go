package oidcbackend

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/pkg/errors"
)

// revoke posts an RFC 7009 revocation request. The provider answers 200 for
// unknown tokens too, so anything else is an error.
func (b *Backend) revoke(ctx context.Context, token, hint string) error {
	form := url.Values{
		"token":           {token},
		"token_type_hint": {hint},
	}
	if b.config.ClientSecret == "" {
		form.Set("client_id", b.config.ClientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.config.RevocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "[Backend.revoke] build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if b.config.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(b.config.ClientID), url.QueryEscape(b.config.ClientSecret))
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(apperrors.ErrNetwork, "[Backend.revoke] %s: %v", hint, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return apperrors.WithStatus(resp.StatusCode, errors.Errorf("[Backend.revoke] %s: provider returned %s", hint, resp.Status))
	}
	b.logger.Debug().Str("token_type_hint", hint).Msg("token revoked")
	return nil
}
