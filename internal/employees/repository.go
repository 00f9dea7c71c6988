package employees

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/db"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Repository is the persistence port for employees. The user id and tag are
// unique; collisions surface as a *shared.DuplicateError on "userId" or "tag".
type Repository interface {
	Create(ctx context.Context, employee Employee) error
	FindByID(ctx context.Context, id string) (Employee, error)
	FindByUserID(ctx context.Context, userID string) (Employee, error)
	List(ctx context.Context, page shared.PageRequest) ([]Employee, int, error)
	Update(ctx context.Context, employee Employee) error
	Delete(ctx context.Context, id string) error
	LoadRoleSet(ctx context.Context, id string) ([]string, int64, error)
	SaveRoleSet(ctx context.Context, id string, roleIDs []string, expectedVersion int64) error
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const employeeColumns = `id::text, user_id::text, tag, description, role_ids, role_version, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	if err := row.Scan(&e.ID, &e.UserID, &e.Tag, &e.Description, &e.RoleIDs, &e.RoleVersion, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Employee{}, db.Translate(err)
	}
	if e.RoleIDs == nil {
		e.RoleIDs = []string{}
	}
	return e, nil
}

// Create inserts a new employee profile.
func (r *PGRepository) Create(ctx context.Context, e Employee) error {
	roleIDs := e.RoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO employees (id, user_id, tag, description, role_ids, role_version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, e.Tag, e.Description, roleIDs, e.RoleVersion, e.CreatedAt, e.UpdatedAt)
	return db.Translate(err)
}

// FindByID fetches an employee by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (Employee, error) {
	return scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id::text = $1`, id))
}

// FindByUserID fetches the profile attached to a user.
func (r *PGRepository) FindByUserID(ctx context.Context, userID string) (Employee, error) {
	return scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE user_id::text = $1`, userID))
}

// List returns a page of employees ordered by creation time.
func (r *PGRepository) List(ctx context.Context, page shared.PageRequest) ([]Employee, int, error) {
	page = page.Normalize()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM employees`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY created_at, id LIMIT $1 OFFSET $2`, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := []Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Update persists tag and description. The role set is only written through
// SaveRoleSet.
func (r *PGRepository) Update(ctx context.Context, e Employee) error {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET tag = $2, description = $3, updated_at = $4 WHERE id::text = $1`,
		e.ID, e.Tag, e.Description, e.UpdatedAt)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the profile. The user record is untouched.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// LoadRoleSet returns the profile-scoped role set and its version.
func (r *PGRepository) LoadRoleSet(ctx context.Context, id string) ([]string, int64, error) {
	var roleIDs []string
	var version int64
	err := r.pool.QueryRow(ctx, `SELECT role_ids, role_version FROM employees WHERE id::text = $1`, id).Scan(&roleIDs, &version)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	return roleIDs, version, nil
}

// SaveRoleSet replaces the role set inside a transaction so the conflict and
// not-found cases are told apart against the same snapshot.
func (r *PGRepository) SaveRoleSet(ctx context.Context, id string, roleIDs []string, expectedVersion int64) error {
	if roleIDs == nil {
		roleIDs = []string{}
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var version int64
		err := tx.QueryRow(ctx, `SELECT role_version FROM employees WHERE id::text = $1 FOR UPDATE`, id).Scan(&version)
		if err != nil {
			return db.Translate(err)
		}
		if version != expectedVersion {
			return shared.ErrConflict
		}
		_, err = tx.Exec(ctx, `UPDATE employees SET role_ids = $2, role_version = role_version + 1, updated_at = $3 WHERE id::text = $1`,
			id, roleIDs, time.Now().UTC())
		return err
	})
}

var _ Repository = (*PGRepository)(nil)
