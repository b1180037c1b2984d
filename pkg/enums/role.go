package enums

// Role is the flat access level attached to a user account.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

// ParseRole normalizes free-form role cells; anything unrecognized is User.
func ParseRole(raw string) Role {
	switch raw {
	case string(RoleAdmin), "admin", "ADMIN":
		return RoleAdmin
	default:
		return RoleUser
	}
}
