package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/Skotchmaster/sweet_shop/internal/events"
	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/Skotchmaster/sweet_shop/internal/repo"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
)

// SweetIndex is the optional search mirror of the inventory.
type SweetIndex interface {
	Upsert(ctx context.Context, s models.Sweet) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, f models.SweetFilter) ([]models.Sweet, error)
}

type SweetService struct {
	Repo   repo.SweetRepo
	Index  SweetIndex
	Events events.Publisher
}

type SweetInput struct {
	Name        string
	Category    string
	Price       float64
	Quantity    int
	Description string
	ImageURL    string
}

// Keys a client may not set through an update.
var readOnlyFields = []string{"id", "_id", "createdAt", "updatedAt", "__v"}

func (s *SweetService) Create(ctx context.Context, in SweetInput) (*models.Sweet, error) {
	l := logging.FromContext(ctx).With("svc", "sweet.create")

	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)

	var v validator
	v.check(in.Name != "", "name", "Name is required")
	checkCategory(&v, in.Category)
	v.check(in.Price >= 0, "price", "Price must be a positive number")
	v.check(in.Quantity >= 0, "quantity", "Quantity must be a non-negative integer")
	if err := v.err(); err != nil {
		l.Warn("create_sweet_failed", "status", 400, "reason", "validation", "error", err)
		return nil, err
	}

	sweet := models.Sweet{
		Name:        in.Name,
		Category:    in.Category,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}
	if err := s.Repo.CreateSweet(ctx, &sweet); err != nil {
		l.Error("create_sweet_failed", "status", 500, "error", err)
		return nil, err
	}

	s.indexUpsert(ctx, sweet)
	s.publish(ctx, events.SweetCreated, sweet, 0)
	l.Info("sweet_created", "sweet_id", sweet.ID)
	return &sweet, nil
}

func (s *SweetService) List(ctx context.Context) ([]models.Sweet, error) {
	return s.Repo.ListSweets(ctx)
}

func (s *SweetService) Search(ctx context.Context, f models.SweetFilter) ([]models.Sweet, error) {
	l := logging.FromContext(ctx).With("svc", "sweet.search")

	f.Name = strings.TrimSpace(f.Name)
	f.Category = strings.TrimSpace(f.Category)

	var v validator
	if f.MinPrice != nil {
		v.check(*f.MinPrice >= 0, "minPrice", "Min price must be positive")
	}
	if f.MaxPrice != nil {
		v.check(*f.MaxPrice >= 0, "maxPrice", "Max price must be positive")
	}
	if f.MinPrice != nil && f.MaxPrice != nil {
		v.check(*f.MinPrice <= *f.MaxPrice, "minPrice", "Min price cannot exceed max price")
	}
	if err := v.err(); err != nil {
		l.Warn("search_failed", "status", 400, "reason", "validation", "error", err)
		return nil, err
	}

	if s.Index != nil {
		found, err := s.Index.Search(ctx, f)
		if err == nil {
			return found, nil
		}
		l.Warn("index_search_failed", "reason", "falling back to store", "error", err)
	}
	return s.Repo.SearchSweets(ctx, f)
}

// CheckUpdateKeys rejects payloads that try to set read-only fields.
func CheckUpdateKeys(keys []string) error {
	var v validator
	for _, k := range keys {
		v.check(!slices.Contains(readOnlyFields, k), k, k+" cannot be updated")
	}
	return v.err()
}

func (s *SweetService) Update(ctx context.Context, id string, p models.SweetPatch) (*models.Sweet, error) {
	l := logging.FromContext(ctx).With("svc", "sweet.update", "sweet_id", id)

	var v validator
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
		v.check(name != "", "name", "Name cannot be empty")
	}
	if p.Category != nil {
		category := strings.TrimSpace(*p.Category)
		p.Category = &category
		checkCategory(&v, category)
	}
	if p.Price != nil {
		v.check(*p.Price >= 0, "price", "Price must be a positive number")
	}
	if p.Quantity != nil {
		v.check(*p.Quantity >= 0, "quantity", "Quantity must be a non-negative integer")
	}
	if err := v.err(); err != nil {
		l.Warn("update_sweet_failed", "status", 400, "reason", "validation", "error", err)
		return nil, err
	}

	sweet, err := s.Repo.UpdateSweet(ctx, id, p)
	if err != nil {
		return nil, s.storeErr(l, "update_sweet_failed", err)
	}

	s.indexUpsert(ctx, *sweet)
	s.publish(ctx, events.SweetUpdated, *sweet, 0)
	l.Info("sweet_updated")
	return sweet, nil
}

func (s *SweetService) Delete(ctx context.Context, id string) error {
	l := logging.FromContext(ctx).With("svc", "sweet.delete", "sweet_id", id)

	if err := s.Repo.DeleteSweet(ctx, id); err != nil {
		return s.storeErr(l, "delete_sweet_failed", err)
	}

	if s.Index != nil {
		if err := s.Index.Delete(ctx, id); err != nil {
			l.Error("index_delete_failed", "error", err)
		}
	}
	s.publish(ctx, events.SweetDeleted, models.Sweet{ID: id}, 0)
	l.Info("sweet_deleted")
	return nil
}

func (s *SweetService) Purchase(ctx context.Context, id string, qty int, buyerID string) (*models.Sweet, error) {
	l := logging.FromContext(ctx).With("svc", "sweet.purchase", "sweet_id", id)

	if err := checkQuantity(qty); err != nil {
		l.Warn("purchase_failed", "status", 400, "reason", "validation", "error", err)
		return nil, err
	}

	sweet, err := s.Repo.DecrementQuantity(ctx, id, qty)
	if err != nil {
		return nil, s.storeErr(l, "purchase_failed", err)
	}

	s.indexUpsert(ctx, *sweet)
	s.publishBy(ctx, events.SweetPurchased, *sweet, -qty, buyerID)
	l.Info("sweet_purchased", "quantity", qty, "remaining", sweet.Quantity)
	return sweet, nil
}

func (s *SweetService) Restock(ctx context.Context, id string, qty int, actorID string) (*models.Sweet, error) {
	l := logging.FromContext(ctx).With("svc", "sweet.restock", "sweet_id", id)

	if err := checkQuantity(qty); err != nil {
		l.Warn("restock_failed", "status", 400, "reason", "validation", "error", err)
		return nil, err
	}

	sweet, err := s.Repo.IncrementQuantity(ctx, id, qty)
	if err != nil {
		return nil, s.storeErr(l, "restock_failed", err)
	}

	s.indexUpsert(ctx, *sweet)
	s.publishBy(ctx, events.SweetRestocked, *sweet, qty, actorID)
	l.Info("sweet_restocked", "quantity", qty, "total", sweet.Quantity)
	return sweet, nil
}

func (s *SweetService) storeErr(l *slog.Logger, event string, err error) error {
	var stock *repo.StockError
	switch {
	case errors.Is(err, repo.ErrNotFound):
		l.Warn(event, "status", 404, "reason", "sweet not found")
		return newError(ErrNotFound, "Sweet not found")
	case errors.As(err, &stock):
		l.Warn(event, "status", 400, "reason", "insufficient stock", "available", stock.Available, "requested", stock.Requested)
		return newError(ErrInsufficientStock, "Insufficient stock. Available: %d, Requested: %d", stock.Available, stock.Requested)
	default:
		l.Error(event, "status", 500, "error", err)
		return err
	}
}

func (s *SweetService) indexUpsert(ctx context.Context, sweet models.Sweet) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Upsert(ctx, sweet); err != nil {
		logging.FromContext(ctx).Error("index_upsert_failed", "sweet_id", sweet.ID, "error", err)
	}
}

func (s *SweetService) publish(ctx context.Context, typ string, sweet models.Sweet, delta int) {
	s.publishBy(ctx, typ, sweet, delta, "")
}

func (s *SweetService) publishBy(ctx context.Context, typ string, sweet models.Sweet, delta int, actorID string) {
	publish(ctx, s.Events, events.TopicSweets, sweet.ID, events.NewSweetEvent(typ, sweet, delta, actorID))
}

func checkCategory(v *validator, category string) {
	v.check(slices.Contains(models.Categories, category), "category", "Invalid category")
}

func checkQuantity(qty int) error {
	var v validator
	v.check(qty >= 1, "quantity", "Quantity must be at least 1")
	return v.err()
}
