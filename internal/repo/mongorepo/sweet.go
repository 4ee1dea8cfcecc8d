package mongorepo

import (
	"context"
	"errors"
	"regexp"

	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/Skotchmaster/sweet_shop/internal/repo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
}

func returnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func (r *MongoRepo) CreateSweet(ctx context.Context, s *models.Sweet) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	ts := now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = ts
	}
	s.UpdatedAt = ts

	_, err := r.sweets.InsertOne(ctx, s)
	return err
}

func (r *MongoRepo) GetSweet(ctx context.Context, id string) (*models.Sweet, error) {
	var s models.Sweet
	if err := r.sweets.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *MongoRepo) ListSweets(ctx context.Context) ([]models.Sweet, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoRepo) SearchSweets(ctx context.Context, f models.SweetFilter) ([]models.Sweet, error) {
	return r.find(ctx, searchFilter(f))
}

func (r *MongoRepo) find(ctx context.Context, filter bson.M) ([]models.Sweet, error) {
	cur, err := r.sweets.Find(ctx, filter, newestFirst())
	if err != nil {
		return nil, err
	}
	items := []models.Sweet{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// searchFilter matches name and category as literal case-insensitive
// substrings.
func searchFilter(f models.SweetFilter) bson.M {
	filter := bson.M{}
	if f.Name != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Name), Options: "i"}
	}
	if f.Category != "" {
		filter["category"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Category), Options: "i"}
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["price"] = price
	}
	return filter
}

func patchSet(p models.SweetPatch) bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.Quantity != nil {
		set["quantity"] = *p.Quantity
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.ImageURL != nil {
		set["image_url"] = *p.ImageURL
	}
	return set
}

func (r *MongoRepo) UpdateSweet(ctx context.Context, id string, p models.SweetPatch) (*models.Sweet, error) {
	if p.Empty() {
		return r.GetSweet(ctx, id)
	}
	set := patchSet(p)
	set["updated_at"] = now()

	var s models.Sweet
	err := r.sweets.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, returnAfter()).Decode(&s)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *MongoRepo) DeleteSweet(ctx context.Context, id string) error {
	res, err := r.sweets.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// decrementAttempts bounds retries when a failed decrement finds the
// stock refilled by the time it re-reads the document.
const decrementAttempts = 3

func (r *MongoRepo) DecrementQuantity(ctx context.Context, id string, n int) (*models.Sweet, error) {
	filter := bson.M{"_id": id, "quantity": bson.M{"$gte": n}}

	available := 0
	for range decrementAttempts {
		update := bson.M{
			"$inc": bson.M{"quantity": -n},
			"$set": bson.M{"updated_at": now()},
		}

		var s models.Sweet
		err := r.sweets.FindOneAndUpdate(ctx, filter, update, returnAfter()).Decode(&s)
		if err == nil {
			return &s, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		current, err := r.GetSweet(ctx, id)
		if err != nil {
			return nil, err
		}
		available = current.Quantity
		if available < n {
			return nil, &repo.StockError{Available: available, Requested: n}
		}
	}
	return nil, &repo.StockError{Available: min(available, n-1), Requested: n}
}

func (r *MongoRepo) IncrementQuantity(ctx context.Context, id string, n int) (*models.Sweet, error) {
	update := bson.M{
		"$inc": bson.M{"quantity": n},
		"$set": bson.M{"updated_at": now()},
	}

	var s models.Sweet
	if err := r.sweets.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, returnAfter()).Decode(&s); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}
