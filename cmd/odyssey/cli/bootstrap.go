package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/odyssey-erp/odyssey-iam/internal/employees"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/roles"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

// AdminRoleName names the full-access role created by bootstrap-admin.
const AdminRoleName = "Administrator"

// UserLookup finds accounts by email.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (users.User, error)
}

// RoleCatalog lists and creates roles.
type RoleCatalog interface {
	List(ctx context.Context) ([]rbac.Role, error)
	Create(ctx context.Context, input roles.RoleInput, by string) (rbac.Role, error)
}

// ProfileDirectory reads and creates employee profiles.
type ProfileDirectory interface {
	Current(ctx context.Context, userID string) (employees.View, error)
	Promote(ctx context.Context, userID string, input employees.ProfileInput, by string) (employees.View, error)
}

// RoleAssigner grants roles to holders.
type RoleAssigner interface {
	Assign(ctx context.Context, target roles.Target, holderID, roleID, by string) (roles.AssignmentResult, error)
}

// BootstrapCLI grants the first administrator, so a fresh deployment has
// someone able to manage roles.
type BootstrapCLI struct {
	users       UserLookup
	roles       RoleCatalog
	profiles    ProfileDirectory
	assignments RoleAssigner
}

// NewBootstrapCLI wires the helper.
func NewBootstrapCLI(users UserLookup, roles RoleCatalog, profiles ProfileDirectory, assignments RoleAssigner) *BootstrapCLI {
	return &BootstrapCLI{users: users, roles: roles, profiles: profiles, assignments: assignments}
}

// BootstrapOptions defines flags for the bootstrap-admin command.
type BootstrapOptions struct {
	Email      string
	Tag        string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// BootstrapSummary describes the JSON response for bootstrap-admin.
type BootstrapSummary struct {
	UserID         string `json:"user_id"`
	EmployeeID     string `json:"employee_id"`
	RoleID         string `json:"role_id"`
	RoleCreated    bool   `json:"role_created"`
	ProfileCreated bool   `json:"profile_created"`
}

// BootstrapCommand runs the workflow and prints the outcome. Running it again
// for the same user changes nothing.
func (c *BootstrapCLI) BootstrapCommand(ctx context.Context, opts BootstrapOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Email == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "bootstrap-admin: --email is required")
		return 1
	}
	summary, err := c.Bootstrap(ctx, opts.Email, opts.Tag)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "bootstrap-admin: %s\n", describe(err))
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "bootstrap-admin: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(opts.Stdout, "user %s is now an administrator (employee %s, role %s)\n", summary.UserID, summary.EmployeeID, summary.RoleID)
	return 0
}

// Bootstrap ensures the full-access role exists and that the user holds it on
// both the employee and the account role sets.
func (c *BootstrapCLI) Bootstrap(ctx context.Context, email, tag string) (BootstrapSummary, error) {
	user, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		return BootstrapSummary{}, err
	}
	summary := BootstrapSummary{UserID: user.ID}

	role, created, err := c.adminRole(ctx)
	if err != nil {
		return BootstrapSummary{}, err
	}
	summary.RoleID, summary.RoleCreated = role.ID, created

	profile, err := c.profiles.Current(ctx, user.ID)
	switch {
	case shared.IsKind(err, shared.KindNotFound):
		profile, err = c.profiles.Promote(ctx, user.ID, employees.ProfileInput{Tag: tag}, "")
		if err != nil {
			return BootstrapSummary{}, err
		}
		summary.ProfileCreated = true
	case err != nil:
		return BootstrapSummary{}, err
	}
	summary.EmployeeID = profile.ID

	if !slices.Contains(profile.RoleIDs, role.ID) {
		if _, err := c.assignments.Assign(ctx, roles.TargetEmployee, profile.ID, role.ID, ""); err != nil {
			return BootstrapSummary{}, err
		}
	}
	if !slices.Contains(user.RoleIDs, role.ID) {
		if _, err := c.assignments.Assign(ctx, roles.TargetUser, user.ID, role.ID, ""); err != nil {
			return BootstrapSummary{}, err
		}
	}
	return summary, nil
}

func (c *BootstrapCLI) adminRole(ctx context.Context) (rbac.Role, bool, error) {
	existing, err := c.roles.List(ctx)
	if err != nil {
		return rbac.Role{}, false, err
	}
	for _, role := range existing {
		if role.Name != AdminRoleName {
			continue
		}
		if !role.HasFullSystemAccess {
			return rbac.Role{}, false, fmt.Errorf("role %q exists without full system access", AdminRoleName)
		}
		return role, false, nil
	}
	role, err := c.roles.Create(ctx, roles.RoleInput{Name: AdminRoleName, HasFullSystemAccess: true, HierarchyLevel: 1000}, "")
	if err != nil {
		return rbac.Role{}, false, err
	}
	return role, true, nil
}

func describe(err error) string {
	var appErr *shared.Error
	if !errors.As(err, &appErr) {
		return err.Error()
	}
	messages := make([]string, 0, len(appErr.Entries()))
	for _, entry := range appErr.Entries() {
		messages = append(messages, entry.Message)
	}
	return strings.Join(messages, "; ")
}
