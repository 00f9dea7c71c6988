package employees

import (
	"time"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
)

// Employee is the administrative profile attached to a user. Its role set is
// independent of the user's own roles.
type Employee struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Tag         string    `json:"tag"`
	Description string    `json:"description"`
	RoleIDs     []string  `json:"roleIds"`
	RoleVersion int64     `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Bearer exposes the profile-scoped role set to the resolver.
func (e Employee) Bearer() rbac.RoleBearer {
	return rbac.RoleBearer{ID: e.ID, ActorID: e.UserID, RoleIDs: e.RoleIDs}
}

// View is an employee with its user email and populated roles.
type View struct {
	Employee
	Email string      `json:"email"`
	Roles []rbac.Role `json:"roles"`
}

// ProfileInput captures promotion and self-application payloads. An empty
// tag falls back to the user's own tag.
type ProfileInput struct {
	Tag         string `json:"tag" validate:"omitempty,hashtag"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateInput captures employee updates. Nil fields are left untouched.
type UpdateInput struct {
	Email       *string `json:"email" validate:"omitempty,email,max=254"`
	Password    *string `json:"password" validate:"omitempty,min=8,max=72"`
	Tag         *string `json:"tag" validate:"omitempty,hashtag"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}
