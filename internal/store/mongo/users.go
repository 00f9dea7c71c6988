package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

// UserRepository implements users.Repository.
type UserRepository struct {
	col *mongod.Collection
}

func (r *UserRepository) Create(ctx context.Context, u users.User) error {
	_, err := r.col.InsertOne(ctx, userToModel(u))
	return translate(err)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (users.User, error) {
	var m userModel
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		return users.User{}, translate(err)
	}
	return m.toUser(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (users.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (users.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) List(ctx context.Context, page shared.PageRequest) ([]users.User, int, error) {
	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.col.Find(ctx, bson.M{}, pageOptions(page))
	if err != nil {
		return nil, 0, err
	}
	var models []userModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, 0, err
	}
	list := make([]users.User, 0, len(models))
	for _, m := range models {
		list = append(list, m.toUser())
	}
	return list, int(total), nil
}

// Update writes profile fields only; the role set and its version are left
// to SaveRoleSet.
func (r *UserRepository) Update(ctx context.Context, u users.User) error {
	set := bson.M{
		"email":        u.Email,
		"passwordHash": u.PasswordHash,
		"status":       string(u.Status),
		"updatedAt":    u.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if u.Tag == "" {
		update["$unset"] = bson.M{"tag": ""}
	} else {
		set["tag"] = u.Tag
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": u.ID}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *UserRepository) LoadRoleSet(ctx context.Context, id string) ([]string, int64, error) {
	return loadRoleSet(ctx, r.col, id)
}

func (r *UserRepository) SaveRoleSet(ctx context.Context, id string, roleIDs []string, expectedVersion int64) error {
	return saveRoleSet(ctx, r.col, id, roleIDs, expectedVersion)
}
