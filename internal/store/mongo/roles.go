package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/roles"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// RoleRepository implements roles.Repository.
type RoleRepository struct {
	col *mongod.Collection
}

func (r *RoleRepository) Create(ctx context.Context, role rbac.Role) error {
	_, err := r.col.InsertOne(ctx, roleToModel(role))
	return translate(err)
}

func (r *RoleRepository) FindByID(ctx context.Context, id string) (rbac.Role, error) {
	var m roleModel
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return rbac.Role{}, translate(err)
	}
	return m.toRole(), nil
}

func (r *RoleRepository) find(ctx context.Context, filter bson.M) ([]rbac.Role, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "hierarchyLevel", Value: -1}, {Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var models []roleModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, err
	}
	list := make([]rbac.Role, 0, len(models))
	for _, m := range models {
		list = append(list, m.toRole())
	}
	roles.SortRoles(list)
	return list, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]rbac.Role, error) {
	return r.find(ctx, bson.M{})
}

// RolesByIDs resolves role references. Ids without a document are skipped.
func (r *RoleRepository) RolesByIDs(ctx context.Context, ids []string) ([]rbac.Role, error) {
	if len(ids) == 0 {
		return []rbac.Role{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *RoleRepository) Update(ctx context.Context, role rbac.Role) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": role.ID}, roleToModel(role))
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}
