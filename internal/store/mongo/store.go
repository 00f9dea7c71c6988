// Package mongo provides MongoDB implementations of every repository.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/odyssey-erp/odyssey-iam/internal/employees"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/roles"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

// Collection name constants.
const (
	colUsers     = "iam_users"
	colRoles     = "iam_roles"
	colEmployees = "iam_employees"
	colAuditLogs = "iam_audit_logs"
)

// Unique index names; duplicate-key errors are mapped back to fields by name.
const (
	idxUserEmail      = "iam_users_email"
	idxUserTag        = "iam_users_tag"
	idxRoleName       = "iam_roles_name"
	idxEmployeeUserID = "iam_employees_user_id"
	idxEmployeeTag    = "iam_employees_tag"
)

// Compile-time interface checks.
var (
	_ users.Repository     = (*UserRepository)(nil)
	_ roles.Repository     = (*RoleRepository)(nil)
	_ rbac.RoleSource      = (*RoleRepository)(nil)
	_ employees.Repository = (*EmployeeRepository)(nil)
	_ shared.AuditRecorder = (*Store)(nil)
)

// Store is a MongoDB implementation of the repositories.
type Store struct {
	db *mongod.Database
}

// New creates a store on db.
func New(db *mongod.Database) *Store {
	return &Store{db: db}
}

// Users returns the user repository view.
func (s *Store) Users() *UserRepository { return &UserRepository{col: s.db.Collection(colUsers)} }

// Roles returns the role repository view.
func (s *Store) Roles() *RoleRepository { return &RoleRepository{col: s.db.Collection(colRoles)} }

// Employees returns the employee repository view.
func (s *Store) Employees() *EmployeeRepository {
	return &EmployeeRepository{col: s.db.Collection(colEmployees)}
}

// Migrate creates the collection indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("store/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Record appends an audit entry.
func (s *Store) Record(ctx context.Context, log shared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	if log.At.IsZero() {
		log.At = now()
	}
	_, err := s.db.Collection(colAuditLogs).InsertOne(ctx, auditModel{
		ActorID:    log.ActorID,
		Action:     log.Action,
		Entity:     log.Entity,
		EntityID:   log.EntityID,
		Meta:       log.Meta,
		OccurredAt: log.At,
	})
	return err
}

func now() time.Time {
	return time.Now().UTC()
}

func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(idxUserEmail)},
			{
				Keys: bson.D{{Key: "tag", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(idxUserTag).
					SetPartialFilterExpression(bson.M{"tag": bson.M{"$type": "string", "$gt": ""}}),
			},
			{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		},
		colRoles: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetName(idxRoleName)},
			{Keys: bson.D{{Key: "hierarchyLevel", Value: -1}, {Key: "name", Value: 1}}},
		},
		colEmployees: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true).SetName(idxEmployeeUserID)},
			{Keys: bson.D{{Key: "tag", Value: 1}}, Options: options.Index().SetUnique(true).SetName(idxEmployeeTag)},
			{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		},
		colAuditLogs: {
			{Keys: bson.D{{Key: "entity", Value: 1}, {Key: "entityId", Value: 1}}},
			{Keys: bson.D{{Key: "occurredAt", Value: -1}}},
		},
	}
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongod.ErrNoDocuments):
		return shared.ErrNotFound
	case mongod.IsDuplicateKeyError(err):
		msg := err.Error()
		for index, field := range map[string]string{
			idxUserEmail:      "email",
			idxUserTag:        "tag",
			idxRoleName:       "name",
			idxEmployeeUserID: "userId",
			idxEmployeeTag:    "tag",
		} {
			if strings.Contains(msg, index) {
				return &shared.DuplicateError{Field: field}
			}
		}
		return &shared.DuplicateError{Field: "id"}
	}
	return err
}

// saveRoleSet applies a compare-and-set on roleVersion.
func saveRoleSet(ctx context.Context, col *mongod.Collection, id string, roleIDs []string, expectedVersion int64) error {
	if roleIDs == nil {
		roleIDs = []string{}
	}
	res, err := col.UpdateOne(ctx,
		bson.M{"_id": id, "roleVersion": expectedVersion},
		bson.M{
			"$set": bson.M{"roleIds": roleIDs, "updatedAt": now()},
			"$inc": bson.M{"roleVersion": 1},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConflict
}

func loadRoleSet(ctx context.Context, col *mongod.Collection, id string) ([]string, int64, error) {
	var doc struct {
		RoleIDs     []string `bson:"roleIds"`
		RoleVersion int64    `bson:"roleVersion"`
	}
	opts := options.FindOne().SetProjection(bson.M{"roleIds": 1, "roleVersion": 1})
	if err := col.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		return nil, 0, translate(err)
	}
	if doc.RoleIDs == nil {
		doc.RoleIDs = []string{}
	}
	return doc.RoleIDs, doc.RoleVersion, nil
}

func pageOptions(page shared.PageRequest) *options.FindOptionsBuilder {
	page = page.Normalize()
	return options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.PerPage))
}
