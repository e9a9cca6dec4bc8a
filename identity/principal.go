package identity

// Role is the application role tag carried in principal metadata.
type Role string

const (
	RoleAdmin      Role = "admin"      // Back office administrator
	RoleConsultant Role = "consultant" // Field consultant, has a ProfileRecord
)

// RoleMetadataKey is the metadata key holding the role tag.
const RoleMetadataKey = "role"

// Principal is the identity returned by the backend. Treat it as immutable:
// re-authentication replaces it rather than editing it.
type Principal struct {
	ID       string         `json:"id"`                 // Unique identifier issued by the backend
	Email    string         `json:"email,omitempty"`    // Login email
	Role     Role           `json:"role,omitempty"`     // Derived role, empty when unknown
	Metadata map[string]any `json:"metadata,omitempty"` // Free form claims
}

// HasRole reports whether the principal carries role. A nil principal has no roles.
func (p *Principal) HasRole(role Role) bool {
	return p != nil && role != "" && p.Role == role
}

func (p *Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

func (p *Principal) IsConsultant() bool {
	return p.HasRole(RoleConsultant)
}

// WithRole returns a copy of p with the role set.
func (p Principal) WithRole(role Role) *Principal {
	p.Role = role
	return &p
}

// RoleFromMetadata reads the role tag from a metadata map. It looks at the
// top level first, then inside app_metadata and user_metadata.
func RoleFromMetadata(md map[string]any) Role {
	if md == nil {
		return ""
	}
	if r, ok := md[RoleMetadataKey].(string); ok && r != "" {
		return Role(r)
	}
	for _, nested := range []string{"app_metadata", "user_metadata"} {
		if inner, ok := md[nested].(map[string]any); ok {
			if r, ok := inner[RoleMetadataKey].(string); ok && r != "" {
				return Role(r)
			}
		}
	}
	return ""
}
