package rbac

import (
	"fmt"
	"sort"
)

// Permission is a discrete capability tag. Tags are stored by name, never by
// ordinal, so the catalog can grow without rewriting stored roles.
type Permission string

// Catalog of supported permissions.
const (
	PermUsersManageAll Permission = "users.manage_all"
	PermRolesManageAll Permission = "roles.manage_all"
)

// Category groups grants on a role.
type Category string

// Grant categories.
const (
	CategoryUsers Category = "users"
	CategoryRoles Category = "roles"
)

// grantRef locates the grant that satisfies a permission.
type grantRef struct {
	category Category
	granted  func(Grant) bool
}

// grantTable is the only place permissions are mapped onto role grants.
var grantTable = map[Permission]grantRef{
	PermUsersManageAll: {category: CategoryUsers, granted: func(g Grant) bool { return g.ManageAll }},
	PermRolesManageAll: {category: CategoryRoles, granted: func(g Grant) bool { return g.ManageAll }},
}

// PermissionInfo describes a catalog entry.
type PermissionInfo struct {
	Name     Permission `json:"name"`
	Category Category   `json:"category"`
}

// Catalog returns every mapped permission sorted by name.
func Catalog() []PermissionInfo {
	out := make([]PermissionInfo, 0, len(grantTable))
	for p, ref := range grantTable {
		out = append(out, PermissionInfo{Name: p, Category: ref.category})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Categories returns the set of categories a role may carry grants for.
func Categories() map[Category]struct{} {
	set := make(map[Category]struct{}, len(grantTable))
	for _, ref := range grantTable {
		set[ref.category] = struct{}{}
	}
	return set
}

// Known reports whether p has a grant table entry.
func Known(p Permission) bool {
	_, ok := grantTable[p]
	return ok
}

// MustKnow panics when any permission lacks a grant table entry. Gates call it
// while routes are built so an unmapped tag stops the process at startup.
func MustKnow(perms ...Permission) {
	for _, p := range perms {
		if !Known(p) {
			panic(fmt.Sprintf("rbac: permission %q is not mapped", p))
		}
	}
}

// PermissionNames converts permissions to their string tags.
func PermissionNames(perms []Permission) []string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return names
}
