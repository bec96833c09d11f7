package domain

import "time"

type Role string

const (
	RoleRenter Role = "RENTER"
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
)

// CanBook reports whether the role is renter-eligible. Owners and admins
// manage listings and bookings but never sit on the renter side.
func (r Role) CanBook() bool {
	return r == RoleRenter
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor identifies who is requesting a state change.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used by background jobs such as the completion sweep.
var SystemActor = Actor{ID: "system", Role: RoleAdmin}
