package session

import (
	"context"

	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Enricher loads the consultant profile for a principal. Failures degrade to
// a nil profile; they never block authentication.
type Enricher struct {
	repo   identity.ProfileRepo
	logger zerolog.Logger
	group  singleflight.Group
}

func NewEnricher(repo identity.ProfileRepo, logger zerolog.Logger) *Enricher {
	return &Enricher{
		repo:   repo,
		logger: logger,
	}
}

// Enrich returns nil without a lookup unless p is a consultant. Concurrent
// calls for the same principal share one lookup, which keeps ctx values but
// not its cancellation.
func (e *Enricher) Enrich(ctx context.Context, p *identity.Principal) *identity.ProfileRecord {
	if !p.IsConsultant() {
		return nil
	}
	if e.repo == nil {
		e.logger.Warn().Str("principal_id", p.ID).Msg("no profile repository configured")
		return nil
	}

	lookupCtx := context.WithoutCancel(ctx)
	v, err, shared := e.group.Do(p.ID, func() (any, error) {
		return e.repo.FindActiveProfileByPrincipalID(lookupCtx, p.ID)
	})
	if err != nil {
		e.logger.Error().Err(err).Str("principal_id", p.ID).Msg("unable to load consultant profile")
		return nil
	}
	profile, _ := v.(*identity.ProfileRecord)
	if profile == nil {
		e.logger.Debug().Str("principal_id", p.ID).Msg("no active consultant profile")
		return nil
	}
	if profile.PrincipalID != "" && profile.PrincipalID != p.ID {
		e.logger.Error().Str("principal_id", p.ID).Str("profile_user_id", profile.PrincipalID).Msg("profile belongs to another principal")
		return nil
	}
	e.logger.Debug().Str("principal_id", p.ID).Bool("shared", shared).Msg("consultant profile loaded")

	cp := *profile
	return &cp
}
