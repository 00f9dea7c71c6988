package roles

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Name length bounds, counted in runes after normalization.
const (
	MinNameLength = 3
	MaxNameLength = 64
)

// RoleInput is a draft role as submitted by clients.
type RoleInput struct {
	Name                string                `json:"name" validate:"required"`
	HasFullSystemAccess bool                  `json:"hasFullSystemAccess"`
	HierarchyLevel      int                   `json:"hierarchyLevel" validate:"min=0,max=1000"`
	Permissions         map[string]rbac.Grant `json:"permissions"`
	DecorationColor     string                `json:"decorationColor" validate:"omitempty,hexcolor"`
}

// NormalizeName applies NFC normalization, trims the name and collapses
// inner whitespace runs to a single space.
func NormalizeName(raw string) string {
	return strings.Join(strings.Fields(norm.NFC.String(raw)), " ")
}

func validName(name string) bool {
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return false
	}
	for _, r := range name {
		if r != ' ' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Draft converts the input into an unsaved role. Unknown permission
// categories and malformed names are reported as validation errors.
func (in RoleInput) Draft() (rbac.Role, error) {
	var fields []shared.FieldError
	name := NormalizeName(in.Name)
	if !validName(name) {
		fields = append(fields, shared.FieldError{
			Field:   "name",
			Message: "Name must be 3 to 64 letters, digits or spaces",
		})
	}

	known := rbac.Categories()
	grants := make(rbac.Grants, len(in.Permissions))
	categories := make([]string, 0, len(in.Permissions))
	for c := range in.Permissions {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		category := rbac.Category(c)
		if _, ok := known[category]; !ok {
			fields = append(fields, shared.FieldError{Field: "permissions." + c, Message: "Unknown permission category"})
			continue
		}
		grants[category] = in.Permissions[c]
	}
	if len(fields) > 0 {
		return rbac.Role{}, shared.Validation(fields...)
	}

	return rbac.Role{
		Name:                name,
		HasFullSystemAccess: in.HasFullSystemAccess,
		HierarchyLevel:      in.HierarchyLevel,
		Permissions:         grants,
		DecorationColor:     strings.ToLower(in.DecorationColor),
	}, nil
}

// SortRoles orders roles by hierarchy level descending, then name.
func SortRoles(list []rbac.Role) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].HierarchyLevel != list[j].HierarchyLevel {
			return list[i].HierarchyLevel > list[j].HierarchyLevel
		}
		return list[i].Name < list[j].Name
	})
}

// Target selects which role set an assignment mutates.
type Target string

// Assignment targets.
const (
	TargetEmployee Target = "employee"
	TargetUser     Target = "user"
)

// AssignmentInput captures assign and retract payloads.
type AssignmentInput struct {
	Target   Target `json:"target" validate:"omitempty,oneof=employee user"`
	HolderID string `json:"holderId" validate:"required"`
	RoleID   string `json:"roleId" validate:"required"`
}

// AssignmentResult reports the role set after a successful mutation.
type AssignmentResult struct {
	Target   Target   `json:"target"`
	HolderID string   `json:"holderId"`
	RoleIDs  []string `json:"roleIds"`
}
