package model

// Role identifies the permission level of an actor.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Actor is a person acting on the workflow: a task assignee, an assigner,
// or a helper working a dependency task. Actors are supplied by the
// identity provider; the engine re-validates the role on every operation.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// IsManager reports whether the actor holds manager-level permissions.
// Admins carry every manager permission.
func (a Actor) IsManager() bool {
	return a.Role == RoleManager || a.Role == RoleAdmin
}
