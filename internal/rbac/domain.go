package rbac

import "time"

// Grant is the per-category permission switch carried by a role.
type Grant struct {
	ManageAll bool `json:"manageAll" bson:"manageAll"`
}

// Grants maps each category to its grant.
type Grants map[Category]Grant

// Role is a named bundle of grants plus the full-access escalation flag.
type Role struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	HasFullSystemAccess bool      `json:"hasFullSystemAccess"`
	HierarchyLevel      int       `json:"hierarchyLevel"`
	Permissions         Grants    `json:"permissions"`
	DecorationColor     string    `json:"decorationColor,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Allows reports whether the role's grants satisfy p. Unmapped permissions
// never match; the resolver reports them separately.
func (r Role) Allows(p Permission) bool {
	ref, ok := grantTable[p]
	if !ok {
		return false
	}
	return ref.granted(r.Permissions[ref.category])
}

// Scope selects which role set a gate consults.
type Scope string

// Gate flavors.
const (
	// ScopeProfile resolves against the employee profile's roles.
	ScopeProfile Scope = "profile"
	// ScopeActor resolves against the signed-in user's own roles.
	ScopeActor Scope = "actor"
)

// RoleBearer is any record that owns a set of role references.
type RoleBearer struct {
	ID      string
	ActorID string
	RoleIDs []string
}

// Subject is the authorised identity attached to the request context.
type Subject struct {
	Scope     Scope
	ActorID   string
	ProfileID string
	Roles     []Role
}

// HasFullSystemAccess reports whether any resolved role carries the flag.
func (s Subject) HasFullSystemAccess() bool {
	for _, r := range s.Roles {
		if r.HasFullSystemAccess {
			return true
		}
	}
	return false
}
