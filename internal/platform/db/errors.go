package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

const uniqueViolation = "23505"

// constraintFields maps unique constraints onto the field names services report.
var constraintFields = map[string]string{
	"users_email_key":       "email",
	"users_tag_key":         "tag",
	"roles_name_key":        "name",
	"employees_tag_key":     "tag",
	"employees_user_id_key": "userId",
}

// UniqueViolation reports the violated constraint when err is a unique
// constraint failure.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// Translate maps driver errors onto the store sentinels. Unique violations
// carry the colliding field name.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return shared.ErrNotFound
	}
	if constraint, ok := UniqueViolation(err); ok {
		field, known := constraintFields[constraint]
		if !known {
			field = constraint
		}
		return &shared.DuplicateError{Field: field}
	}
	return err
}
