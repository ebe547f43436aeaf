package auth

import (
	"slices"
	"strings"
	"time"
)

// Principal is the verified identity behind a bearer token.
type Principal struct {
	UserID         string
	Login          string
	OrganizationID string
	Organizations  []string
	ExpiresAt      time.Time
}

// BelongsTo reports whether the principal is a member of orgID.
func (p Principal) BelongsTo(orgID string) bool {
	orgID = strings.TrimSpace(orgID)
	return orgID != "" && slices.Contains(p.Organizations, orgID)
}

// ActiveOrganization resolves the organization a request acts on. An explicit
// choice must be one of the principal's organizations; an empty choice falls
// back to the organization recorded at login.
func (p Principal) ActiveOrganization(requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return p.OrganizationID, p.OrganizationID != ""
	}
	if !p.BelongsTo(requested) {
		return "", false
	}
	return requested, true
}
