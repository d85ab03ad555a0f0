package models

import "fmt"

// Role determines menus, routes and the notification type vocabulary of a user.
type Role string

const (
	RoleCoordinator Role = "coordinador"
	RoleTherapist   Role = "terapeuta"
	RoleParent      Role = "padre"
)

// ParseRole accepts the role strings used in routes and tokens.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCoordinator, RoleTherapist, RoleParent:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// ReceivesNotifications reports whether the role has a notification feed.
// Coordinators have no vocabulary of their own.
func (r Role) ReceivesNotifications() bool {
	return r == RoleParent || r == RoleTherapist
}

func (r Role) String() string {
	return string(r)
}
