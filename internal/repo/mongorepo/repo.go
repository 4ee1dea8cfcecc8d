package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/sweet_shop/internal/repo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection  = "users"
	sweetsCollection = "sweets"
)

type MongoRepo struct {
	DB     *mongo.Database
	users  *mongo.Collection
	sweets *mongo.Collection
}

var _ repo.Store = (*MongoRepo)(nil)

func New(db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		DB:     db,
		users:  db.Collection(usersCollection),
		sweets: db.Collection(sweetsCollection),
	}
}

func Connect(ctx context.Context, uri, database string) (*MongoRepo, error) {
	if uri == "" {
		return nil, fmt.Errorf("MONGODB_URI is empty")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return New(client.Database(database)), nil
}

func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	if _, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users index: %w", err)
	}

	if _, err := r.sweets.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("sweets indexes: %w", err)
	}
	return nil
}

func (r *MongoRepo) Ping(ctx context.Context) error {
	return r.DB.Client().Ping(ctx, readpref.Primary())
}

func (r *MongoRepo) Close(ctx context.Context) error {
	return r.DB.Client().Disconnect(ctx)
}

// now is truncated to the millisecond precision BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repo.ErrNotFound
	}
	return err
}
