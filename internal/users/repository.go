package users

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/db"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Repository is the persistence port for users. Implementations return
// shared.ErrNotFound for missing rows, a *shared.DuplicateError for unique
// collisions and shared.ErrConflict when a role-set write loses a race.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, page shared.PageRequest) ([]User, int, error)
	Update(ctx context.Context, user User) error
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

const userColumns = `id::text, email, password_hash, COALESCE(tag, ''), status, role_ids, role_version, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var status string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Tag, &status, &u.RoleIDs, &u.RoleVersion, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, db.Translate(err)
	}
	u.Status = Status(status)
	if u.RoleIDs == nil {
		u.RoleIDs = []string{}
	}
	return u, nil
}

func nullableTag(tag string) *string {
	if tag == "" {
		return nil
	}
	return &tag
}

// Create inserts a new user.
func (r *PGRepository) Create(ctx context.Context, user User) error {
	roleIDs := user.RoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO users (id, email, password_hash, tag, status, role_ids, role_version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Email, user.PasswordHash, nullableTag(user.Tag), string(user.Status), roleIDs, user.RoleVersion, user.CreatedAt, user.UpdatedAt)
	return db.Translate(err)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id::text = $1`, id))
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// List returns a page of users ordered by creation time.
func (r *PGRepository) List(ctx context.Context, page shared.PageRequest) ([]User, int, error) {
	page = page.Normalize()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update persists profile fields. The role set is only written through
// SaveRoleSet.
func (r *PGRepository) Update(ctx context.Context, user User) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET email = $2, password_hash = $3, tag = $4, status = $5, updated_at = $6 WHERE id::text = $1`,
		user.ID, user.Email, user.PasswordHash, nullableTag(user.Tag), string(user.Status), user.UpdatedAt)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// LoadRoleSet returns the actor-scoped role set and its version.
func (r *PGRepository) LoadRoleSet(ctx context.Context, id string) ([]string, int64, error) {
	var roleIDs []string
	var version int64
	err := r.pool.QueryRow(ctx, `SELECT role_ids, role_version FROM users WHERE id::text = $1`, id).Scan(&roleIDs, &version)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	return roleIDs, version, nil
}

// SaveRoleSet replaces the role set when the stored version still equals
// expectedVersion.
func (r *PGRepository) SaveRoleSet(ctx context.Context, id string, roleIDs []string, expectedVersion int64) error {
	if roleIDs == nil {
		roleIDs = []string{}
	}
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role_ids = $2, role_version = role_version + 1, updated_at = $3 WHERE id::text = $1 AND role_version = $4`,
		id, roleIDs, time.Now().UTC(), expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id::text = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return shared.ErrNotFound
	}
	return shared.ErrConflict
}

var _ Repository = (*PGRepository)(nil)
