package domain

import "time"

// TeamRole is a member's permission level within a team.
type TeamRole string

const (
	RoleOwner  TeamRole = "owner"
	RoleAdmin  TeamRole = "admin"
	RoleMember TeamRole = "member"
	RoleViewer TeamRole = "viewer"
)

// AllTeamRoles contains all valid team roles in order of decreasing privilege.
var AllTeamRoles = []TeamRole{RoleOwner, RoleAdmin, RoleMember, RoleViewer}

// IsValid checks if a role is one of the known team roles.
func (r TeamRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

func (r TeamRole) String() string {
	return string(r)
}

type TeamMember struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      TeamRole  `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Team is a read-mostly projection of a server-side team. DisplayID is the
// URL-stable human identifier; ID is the storage identifier and is never used
// for routing or cache keys.
type Team struct {
	ID          string       `json:"id"`
	DisplayID   string       `json:"displayId"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Members     []TeamMember `json:"members"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Member returns the team member with the given username, if present.
func (t *Team) Member(username string) (TeamMember, bool) {
	for _, m := range t.Members {
		if m.Username == username {
			return m, true
		}
	}
	return TeamMember{}, false
}
