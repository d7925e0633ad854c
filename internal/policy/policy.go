// Package policy decides who may do what. Roles come from the identity
// provider's token claims; nothing here looks at email addresses.
package policy

import "strings"

// Role is the caller's privilege level.
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleModerator:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return r.rank() >= min.rank() && r.rank() > 0
}

// ParseRole normalizes a claim value. Unknown or empty values are members.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleModerator:
		return RoleModerator
	default:
		return RoleMember
	}
}

// Principal is the authenticated caller.
type Principal struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`
}

// Authenticated reports whether the principal identifies a user.
func (p Principal) Authenticated() bool {
	return p.UserID != 0
}

// DisplayName is the name snapshotted onto authored content.
func (p Principal) DisplayName() string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	if at := strings.Index(p.Email, "@"); at > 0 {
		return p.Email[:at]
	}
	return "Anonymous"
}

// CanModerate reports whether p may use the moderator console.
func CanModerate(p Principal) bool {
	return p.Authenticated() && p.Role.AtLeast(RoleModerator)
}

// CanModify reports whether p may edit or delete content owned by ownerID.
func CanModify(p Principal, ownerID uint) bool {
	if !p.Authenticated() {
		return false
	}
	return p.UserID == ownerID || CanModerate(p)
}

// IsExpert marks content authored by staff.
func IsExpert(p Principal) bool {
	return CanModerate(p)
}
