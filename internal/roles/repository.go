package roles

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/db"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Repository is the persistence port for roles. Name uniqueness is enforced
// by the store and reported as a *shared.DuplicateError on "name".
type Repository interface {
	Create(ctx context.Context, role rbac.Role) error
	FindByID(ctx context.Context, id string) (rbac.Role, error)
	List(ctx context.Context) ([]rbac.Role, error)
	RolesByIDs(ctx context.Context, ids []string) ([]rbac.Role, error)
	Update(ctx context.Context, role rbac.Role) error
	Delete(ctx context.Context, id string) error
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const roleColumns = `id::text, name, has_full_system_access, hierarchy_level, permissions, COALESCE(decoration_color, ''), created_at, updated_at`

func scanRole(row pgx.Row) (rbac.Role, error) {
	var role rbac.Role
	var perms []byte
	if err := row.Scan(&role.ID, &role.Name, &role.HasFullSystemAccess, &role.HierarchyLevel, &perms, &role.DecorationColor, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return rbac.Role{}, db.Translate(err)
	}
	role.Permissions = rbac.Grants{}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &role.Permissions); err != nil {
			return rbac.Role{}, fmt.Errorf("roles: decode permissions: %w", err)
		}
	}
	return role, nil
}

func collectRoles(rows pgx.Rows) ([]rbac.Role, error) {
	defer rows.Close()
	roles := []rbac.Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func encodeGrants(grants rbac.Grants) ([]byte, error) {
	if grants == nil {
		grants = rbac.Grants{}
	}
	return json.Marshal(grants)
}

func nullableColor(color string) *string {
	if color == "" {
		return nil
	}
	return &color
}

// Create inserts a new role.
func (r *PGRepository) Create(ctx context.Context, role rbac.Role) error {
	perms, err := encodeGrants(role.Permissions)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO roles (id, name, has_full_system_access, hierarchy_level, permissions, decoration_color, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		role.ID, role.Name, role.HasFullSystemAccess, role.HierarchyLevel, perms, nullableColor(role.DecorationColor), role.CreatedAt, role.UpdatedAt)
	return db.Translate(err)
}

// FindByID fetches a role by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (rbac.Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id::text = $1`, id))
}

// List returns all roles ordered by hierarchy level and name.
func (r *PGRepository) List(ctx context.Context) ([]rbac.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY hierarchy_level DESC, name COLLATE "C"`)
	if err != nil {
		return nil, err
	}
	return collectRoles(rows)
}

// RolesByIDs resolves role references. Ids without a row are skipped.
func (r *PGRepository) RolesByIDs(ctx context.Context, ids []string) ([]rbac.Role, error) {
	if len(ids) == 0 {
		return []rbac.Role{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles WHERE id::text = ANY($1) ORDER BY hierarchy_level DESC, name COLLATE "C"`, ids)
	if err != nil {
		return nil, err
	}
	return collectRoles(rows)
}

// Update persists a role.
func (r *PGRepository) Update(ctx context.Context, role rbac.Role) error {
	perms, err := encodeGrants(role.Permissions)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET name = $2, has_full_system_access = $3, hierarchy_level = $4, permissions = $5, decoration_color = $6, updated_at = $7 WHERE id::text = $1`,
		role.ID, role.Name, role.HasFullSystemAccess, role.HierarchyLevel, perms, nullableColor(role.DecorationColor), role.UpdatedAt)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a role. Holders keep the dangling reference.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var (
	_ Repository      = (*PGRepository)(nil)
	_ rbac.RoleSource = (*PGRepository)(nil)
)
