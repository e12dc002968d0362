package model

type Role string

const (
	RolePrimary    Role = "Primary"
	RoleSecondary  Role = "Secondary"
	RoleOccasional Role = "Occasional"
)

func (r Role) Valid() bool {
	switch r {
	case RolePrimary, RoleSecondary, RoleOccasional:
		return true
	}
	return false
}

type Member struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Email             string   `json:"email,omitempty"`
	AvatarRef         string   `json:"avatar_ref,omitempty"`
	Role              Role     `json:"role"`
	WalkCount         int      `json:"walk_count"`
	TotalWalkDuration int      `json:"total_walk_duration"`
	Achievements      []string `json:"achievements"`
}

// HasAchievement reports whether the member holds the manually granted badge.
func (m Member) HasAchievement(label string) bool {
	for _, a := range m.Achievements {
		if a == label {
			return true
		}
	}
	return false
}

func (m Member) clone() Member {
	out := m
	out.Achievements = append([]string{}, m.Achievements...)
	return out
}
