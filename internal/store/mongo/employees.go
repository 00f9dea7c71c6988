package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/odyssey-erp/odyssey-iam/internal/employees"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// EmployeeRepository implements employees.Repository.
type EmployeeRepository struct {
	col *mongod.Collection
}

func (r *EmployeeRepository) Create(ctx context.Context, e employees.Employee) error {
	_, err := r.col.InsertOne(ctx, employeeToModel(e))
	return translate(err)
}

func (r *EmployeeRepository) findOne(ctx context.Context, filter bson.M) (employees.Employee, error) {
	var m employeeModel
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		return employees.Employee{}, translate(err)
	}
	return m.toEmployee(), nil
}

func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (employees.Employee, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *EmployeeRepository) FindByUserID(ctx context.Context, userID string) (employees.Employee, error) {
	return r.findOne(ctx, bson.M{"userId": userID})
}

func (r *EmployeeRepository) List(ctx context.Context, page shared.PageRequest) ([]employees.Employee, int, error) {
	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.col.Find(ctx, bson.M{}, pageOptions(page))
	if err != nil {
		return nil, 0, err
	}
	var models []employeeModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, 0, err
	}
	list := make([]employees.Employee, 0, len(models))
	for _, m := range models {
		list = append(list, m.toEmployee())
	}
	return list, int(total), nil
}

func (r *EmployeeRepository) Update(ctx context.Context, e employees.Employee) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": e.ID}, bson.M{"$set": bson.M{
		"tag":         e.Tag,
		"description": e.Description,
		"updatedAt":   e.UpdatedAt,
	}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *EmployeeRepository) LoadRoleSet(ctx context.Context, id string) ([]string, int64, error) {
	return loadRoleSet(ctx, r.col, id)
}

func (r *EmployeeRepository) SaveRoleSet(ctx context.Context, id string, roleIDs []string, expectedVersion int64) error {
	return saveRoleSet(ctx, r.col, id, roleIDs, expectedVersion)
}
