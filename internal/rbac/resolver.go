package rbac

import (
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Decision is the outcome of resolving a permission request.
type Decision struct {
	Allowed bool
	Missing []Permission
}

// Err converts a denial into the client-facing NotAuthorized error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return shared.NotAuthorized("You are missing following permissions: " + strings.Join(PermissionNames(d.Missing), ", "))
}

// Resolve decides whether roles satisfy every required permission.
//
// An empty requirement always passes. A role with full system access passes
// any requirement. Otherwise each permission needs at least one granting role.
// A permission without a grant table entry is a programming fault and yields a
// critical error instead of a denial.
func Resolve(roles []Role, required []Permission) (Decision, error) {
	if len(required) == 0 {
		return Decision{Allowed: true}, nil
	}
	for _, r := range roles {
		if r.HasFullSystemAccess {
			return Decision{Allowed: true}, nil
		}
	}

	var missing []Permission
	for _, p := range required {
		if !Known(p) {
			return Decision{}, shared.Critical("permission cannot be handled", fmt.Errorf("rbac: permission %q is not mapped", p))
		}
		granted := false
		for _, r := range roles {
			if r.Allows(p) {
				granted = true
				break
			}
		}
		if !granted {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return Decision{Missing: missing}, nil
	}
	return Decision{Allowed: true}, nil
}

// Effective lists every catalog permission the roles grant.
func Effective(roles []Role) []Permission {
	var out []Permission
	for _, info := range Catalog() {
		d, err := Resolve(roles, []Permission{info.Name})
		if err == nil && d.Allowed {
			out = append(out, info.Name)
		}
	}
	return out
}
