package leagues

import "strings"

// Role is a member's standing inside a league.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// League is a private group of players making picks together.
type League struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code"`
	OwnerID    string `json:"owner_id,omitempty"`
}

// Member links a user to a league.
type Member struct {
	LeagueID string `json:"league_id"`
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
}

const (
	minCodeLen = 4
	maxCodeLen = 32
)

// NormalizeInviteCode trims surrounding space and reports whether the code is
// a plausible invite code (4-32 ASCII letters or digits).
func NormalizeInviteCode(raw string) (string, bool) {
	code := strings.TrimSpace(raw)
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return "", false
	}
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return "", false
		}
	}
	return code, true
}
