package identity

import "context"

// ProfileRecord is the consultant enrichment stored by the application.
type ProfileRecord struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Active      bool   `json:"active"`
	PrincipalID string `json:"user_id"` // Back reference to Principal.ID
}

// ProfileRepo looks up profile records. A missing record is (nil, nil).
type ProfileRepo interface {
	FindActiveProfileByPrincipalID(ctx context.Context, principalID string) (*ProfileRecord, error)
}
