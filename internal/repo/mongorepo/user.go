package mongorepo

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/Skotchmaster/sweet_shop/internal/repo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (r *MongoRepo) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	ts := now()
	u.CreatedAt, u.UpdatedAt = ts, ts

	if _, err := r.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("email %q: %w", u.Email, repo.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *MongoRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.users.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}
