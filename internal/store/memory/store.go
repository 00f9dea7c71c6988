// Package memory provides an in-memory implementation of every repository.
// It is intended for development and tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-iam/internal/employees"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/roles"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

// Compile-time interface checks.
var (
	_ users.Repository     = (*UserRepository)(nil)
	_ roles.Repository     = (*RoleRepository)(nil)
	_ rbac.RoleSource      = (*RoleRepository)(nil)
	_ employees.Repository = (*EmployeeRepository)(nil)
	_ roles.HolderStore    = (*UserRepository)(nil)
	_ roles.HolderStore    = (*EmployeeRepository)(nil)
	_ shared.AuditRecorder = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all entities.
type Store struct {
	mu sync.RWMutex

	users     map[string]users.User
	roles     map[string]rbac.Role
	employees map[string]employees.Employee
	audit     []shared.AuditLog
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		users:     make(map[string]users.User),
		roles:     make(map[string]rbac.Role),
		employees: make(map[string]employees.Employee),
	}
}

// Users returns the user repository view.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Roles returns the role repository view.
func (s *Store) Roles() *RoleRepository { return &RoleRepository{s: s} }

// Employees returns the employee repository view.
func (s *Store) Employees() *EmployeeRepository { return &EmployeeRepository{s: s} }

// Record appends an audit entry.
func (s *Store) Record(_ context.Context, log shared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	log.Meta = maps.Clone(log.Meta)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, log)
	return nil
}

// AuditTrail returns a copy of every recorded audit entry.
func (s *Store) AuditTrail() []shared.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.audit)
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return slices.Clone(ids)
}

// ──────────────────────────────────────────────────
// Users
// ──────────────────────────────────────────────────

// UserRepository implements users.Repository.
type UserRepository struct {
	s *Store
}

func copyUser(u users.User) users.User {
	u.RoleIDs = cloneIDs(u.RoleIDs)
	return u
}

// uniqueUser must be called with the lock held.
func (r *UserRepository) uniqueUser(u users.User) error {
	for id, other := range r.s.users {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email {
			return &shared.DuplicateError{Field: "email"}
		}
		if u.Tag != "" && other.Tag == u.Tag {
			return &shared.DuplicateError{Field: "tag"}
		}
	}
	return nil
}

func (r *UserRepository) Create(_ context.Context, u users.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; ok {
		return &shared.DuplicateError{Field: "id"}
	}
	if err := r.uniqueUser(u); err != nil {
		return err
	}
	r.s.users[u.ID] = copyUser(u)
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return users.User{}, fmt.Errorf("user %s: %w", id, shared.ErrNotFound)
	}
	return copyUser(u), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return users.User{}, fmt.Errorf("user email %q: %w", email, shared.ErrNotFound)
}

func (r *UserRepository) List(_ context.Context, page shared.PageRequest) ([]users.User, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]users.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		list = append(list, copyUser(u))
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return shared.Window(list, page), len(list), nil
}

func (r *UserRepository) Update(_ context.Context, u users.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.users[u.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", u.ID, shared.ErrNotFound)
	}
	if err := r.uniqueUser(u); err != nil {
		return err
	}
	u.RoleIDs = current.RoleIDs
	u.RoleVersion = current.RoleVersion
	r.s.users[u.ID] = copyUser(u)
	return nil
}

func (r *UserRepository) LoadRoleSet(_ context.Context, id string) ([]string, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, 0, fmt.Errorf("user %s: %w", id, shared.ErrNotFound)
	}
	return cloneIDs(u.RoleIDs), u.RoleVersion, nil
}

func (r *UserRepository) SaveRoleSet(_ context.Context, id string, roleIDs []string, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, shared.ErrNotFound)
	}
	if u.RoleVersion != expectedVersion {
		return shared.ErrConflict
	}
	u.RoleIDs = cloneIDs(roleIDs)
	u.RoleVersion++
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return nil
}

// ──────────────────────────────────────────────────
// Roles
// ──────────────────────────────────────────────────

// RoleRepository implements roles.Repository.
type RoleRepository struct {
	s *Store
}

func copyRole(role rbac.Role) rbac.Role {
	role.Permissions = maps.Clone(role.Permissions)
	if role.Permissions == nil {
		role.Permissions = rbac.Grants{}
	}
	return role
}

// uniqueName must be called with the lock held.
func (r *RoleRepository) uniqueName(role rbac.Role) error {
	for id, other := range r.s.roles {
		if id != role.ID && other.Name == role.Name {
			return &shared.DuplicateError{Field: "name"}
		}
	}
	return nil
}

func (r *RoleRepository) Create(_ context.Context, role rbac.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[role.ID]; ok {
		return &shared.DuplicateError{Field: "id"}
	}
	if err := r.uniqueName(role); err != nil {
		return err
	}
	r.s.roles[role.ID] = copyRole(role)
	return nil
}

func (r *RoleRepository) FindByID(_ context.Context, id string) (rbac.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	role, ok := r.s.roles[id]
	if !ok {
		return rbac.Role{}, fmt.Errorf("role %s: %w", id, shared.ErrNotFound)
	}
	return copyRole(role), nil
}

func (r *RoleRepository) List(_ context.Context) ([]rbac.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]rbac.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		list = append(list, copyRole(role))
	}
	roles.SortRoles(list)
	return list, nil
}

func (r *RoleRepository) RolesByIDs(_ context.Context, ids []string) ([]rbac.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]rbac.Role, 0, len(ids))
	for _, id := range ids {
		if role, ok := r.s.roles[id]; ok {
			list = append(list, copyRole(role))
		}
	}
	roles.SortRoles(list)
	return list, nil
}

func (r *RoleRepository) Update(_ context.Context, role rbac.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[role.ID]; !ok {
		return fmt.Errorf("role %s: %w", role.ID, shared.ErrNotFound)
	}
	if err := r.uniqueName(role); err != nil {
		return err
	}
	r.s.roles[role.ID] = copyRole(role)
	return nil
}

func (r *RoleRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[id]; !ok {
		return fmt.Errorf("role %s: %w", id, shared.ErrNotFound)
	}
	delete(r.s.roles, id)
	return nil
}

// ──────────────────────────────────────────────────
// Employees
// ──────────────────────────────────────────────────

// EmployeeRepository implements employees.Repository.
type EmployeeRepository struct {
	s *Store
}

func copyEmployee(e employees.Employee) employees.Employee {
	e.RoleIDs = cloneIDs(e.RoleIDs)
	return e
}

// uniqueEmployee must be called with the lock held.
func (r *EmployeeRepository) uniqueEmployee(e employees.Employee) error {
	for id, other := range r.s.employees {
		if id == e.ID {
			continue
		}
		if other.UserID == e.UserID {
			return &shared.DuplicateError{Field: "userId"}
		}
		if other.Tag == e.Tag {
			return &shared.DuplicateError{Field: "tag"}
		}
	}
	return nil
}

func (r *EmployeeRepository) Create(_ context.Context, e employees.Employee) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.employees[e.ID]; ok {
		return &shared.DuplicateError{Field: "id"}
	}
	if err := r.uniqueEmployee(e); err != nil {
		return err
	}
	r.s.employees[e.ID] = copyEmployee(e)
	return nil
}

func (r *EmployeeRepository) FindByID(_ context.Context, id string) (employees.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.employees[id]
	if !ok {
		return employees.Employee{}, fmt.Errorf("employee %s: %w", id, shared.ErrNotFound)
	}
	return copyEmployee(e), nil
}

func (r *EmployeeRepository) FindByUserID(_ context.Context, userID string) (employees.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.employees {
		if e.UserID == userID {
			return copyEmployee(e), nil
		}
	}
	return employees.Employee{}, fmt.Errorf("employee for user %s: %w", userID, shared.ErrNotFound)
}

func (r *EmployeeRepository) List(_ context.Context, page shared.PageRequest) ([]employees.Employee, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]employees.Employee, 0, len(r.s.employees))
	for _, e := range r.s.employees {
		list = append(list, copyEmployee(e))
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return shared.Window(list, page), len(list), nil
}

func (r *EmployeeRepository) Update(_ context.Context, e employees.Employee) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.employees[e.ID]
	if !ok {
		return fmt.Errorf("employee %s: %w", e.ID, shared.ErrNotFound)
	}
	if err := r.uniqueEmployee(e); err != nil {
		return err
	}
	e.UserID = current.UserID
	e.RoleIDs = current.RoleIDs
	e.RoleVersion = current.RoleVersion
	r.s.employees[e.ID] = copyEmployee(e)
	return nil
}

func (r *EmployeeRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.employees[id]; !ok {
		return fmt.Errorf("employee %s: %w", id, shared.ErrNotFound)
	}
	delete(r.s.employees, id)
	return nil
}

func (r *EmployeeRepository) LoadRoleSet(_ context.Context, id string) ([]string, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.employees[id]
	if !ok {
		return nil, 0, fmt.Errorf("employee %s: %w", id, shared.ErrNotFound)
	}
	return cloneIDs(e.RoleIDs), e.RoleVersion, nil
}

func (r *EmployeeRepository) SaveRoleSet(_ context.Context, id string, roleIDs []string, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.employees[id]
	if !ok {
		return fmt.Errorf("employee %s: %w", id, shared.ErrNotFound)
	}
	if e.RoleVersion != expectedVersion {
		return shared.ErrConflict
	}
	e.RoleIDs = cloneIDs(roleIDs)
	e.RoleVersion++
	e.UpdatedAt = time.Now().UTC()
	r.s.employees[id] = e
	return nil
}
