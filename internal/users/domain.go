package users

import (
	"time"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
)

// Status is the account state of a user.
type Status string

// Account states.
const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusSuspended
}

// User represents an actor account. The actor-scoped role set is independent
// of any employee profile the user may hold.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Tag          string    `json:"tag,omitempty"`
	Status       Status    `json:"status"`
	RoleIDs      []string  `json:"roleIds"`
	RoleVersion  int64     `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Suspended reports whether the account is blocked from authenticating.
func (u User) Suspended() bool {
	return u.Status == StatusSuspended
}

// Bearer exposes the actor-scoped role set to the resolver.
func (u User) Bearer() rbac.RoleBearer {
	return rbac.RoleBearer{ID: u.ID, ActorID: u.ID, RoleIDs: u.RoleIDs}
}

// RegisterInput captures sign-up payloads.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Tag      string `json:"tag" validate:"omitempty,hashtag"`
}

// StatusInput captures status changes.
type StatusInput struct {
	Status Status `json:"status" validate:"required,oneof=active suspended"`
}

// CredentialsUpdate carries optional credential changes. Nil fields are left
// untouched.
type CredentialsUpdate struct {
	Email    *string
	Password *string
}
