package mongo

import (
	"time"

	"github.com/odyssey-erp/odyssey-iam/internal/employees"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

type userModel struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Tag          string    `bson:"tag,omitempty"`
	Status       string    `bson:"status"`
	RoleIDs      []string  `bson:"roleIds"`
	RoleVersion  int64     `bson:"roleVersion"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func userToModel(u users.User) userModel {
	roleIDs := u.RoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}
	return userModel{
		ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash, Tag: u.Tag, Status: string(u.Status),
		RoleIDs: roleIDs, RoleVersion: u.RoleVersion, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (m userModel) toUser() users.User {
	roleIDs := m.RoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}
	return users.User{
		ID: m.ID, Email: m.Email, PasswordHash: m.PasswordHash, Tag: m.Tag, Status: users.Status(m.Status),
		RoleIDs: roleIDs, RoleVersion: m.RoleVersion, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

type roleModel struct {
	ID                  string                `bson:"_id"`
	Name                string                `bson:"name"`
	HasFullSystemAccess bool                  `bson:"hasFullSystemAccess"`
	HierarchyLevel      int                   `bson:"hierarchyLevel"`
	Permissions         map[string]rbac.Grant `bson:"permissions"`
	DecorationColor     string                `bson:"decorationColor,omitempty"`
	CreatedAt           time.Time             `bson:"createdAt"`
	UpdatedAt           time.Time             `bson:"updatedAt"`
}

func roleToModel(r rbac.Role) roleModel {
	perms := make(map[string]rbac.Grant, len(r.Permissions))
	for c, g := range r.Permissions {
		perms[string(c)] = g
	}
	return roleModel{
		ID: r.ID, Name: r.Name, HasFullSystemAccess: r.HasFullSystemAccess, HierarchyLevel: r.HierarchyLevel,
		Permissions: perms, DecorationColor: r.DecorationColor, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (m roleModel) toRole() rbac.Role {
	grants := make(rbac.Grants, len(m.Permissions))
	for c, g := range m.Permissions {
		grants[rbac.Category(c)] = g
	}
	return rbac.Role{
		ID: m.ID, Name: m.Name, HasFullSystemAccess: m.HasFullSystemAccess, HierarchyLevel: m.HierarchyLevel,
		Permissions: grants, DecorationColor: m.DecorationColor, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

type employeeModel struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"userId"`
	Tag         string    `bson:"tag"`
	Description string    `bson:"description"`
	RoleIDs     []string  `bson:"roleIds"`
	RoleVersion int64     `bson:"roleVersion"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func employeeToModel(e employees.Employee) employeeModel {
	roleIDs := e.RoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}
	return employeeModel{
		ID: e.ID, UserID: e.UserID, Tag: e.Tag, Description: e.Description,
		RoleIDs: roleIDs, RoleVersion: e.RoleVersion, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
}

func (m employeeModel) toEmployee() employees.Employee {
	roleIDs := m.RoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}
	return employees.Employee{
		ID: m.ID, UserID: m.UserID, Tag: m.Tag, Description: m.Description,
		RoleIDs: roleIDs, RoleVersion: m.RoleVersion, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

type auditModel struct {
	ActorID    string         `bson:"actorId"`
	Action     string         `bson:"action"`
	Entity     string         `bson:"entity"`
	EntityID   string         `bson:"entityId"`
	Meta       map[string]any `bson:"meta,omitempty"`
	OccurredAt time.Time      `bson:"occurredAt"`
}
