package gormrepo

import (
	"context"

	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/Skotchmaster/sweet_shop/internal/repo"
	"gorm.io/gorm"
)

func (r *GormRepo) CreateSweet(ctx context.Context, s *models.Sweet) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *GormRepo) GetSweet(ctx context.Context, id string) (*models.Sweet, error) {
	var s models.Sweet
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *GormRepo) ListSweets(ctx context.Context) ([]models.Sweet, error) {
	items := []models.Sweet{}
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) SearchSweets(ctx context.Context, f models.SweetFilter) ([]models.Sweet, error) {
	q := r.DB.WithContext(ctx).Model(&models.Sweet{})
	if f.Name != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(f.Name))
	}
	if f.Category != "" {
		q = q.Where(`LOWER(category) LIKE ? ESCAPE '\'`, likePattern(f.Category))
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}

	items := []models.Sweet{}
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) UpdateSweet(ctx context.Context, id string, p models.SweetPatch) (*models.Sweet, error) {
	var s models.Sweet
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&s).Error; err != nil {
			return notFound(err)
		}

		updates := patchColumns(p)
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = r.now()

		if err := tx.Model(&models.Sweet{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&s).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func patchColumns(p models.SweetPatch) map[string]any {
	updates := map[string]any{}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Category != nil {
		updates["category"] = *p.Category
	}
	if p.Price != nil {
		updates["price"] = *p.Price
	}
	if p.Quantity != nil {
		updates["quantity"] = *p.Quantity
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	if p.ImageURL != nil {
		updates["image_url"] = *p.ImageURL
	}
	return updates
}

func (r *GormRepo) DeleteSweet(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Sweet{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// decrementAttempts bounds retries when a failed decrement finds the
// stock refilled by the time it re-reads the row.
const decrementAttempts = 3

func (r *GormRepo) DecrementQuantity(ctx context.Context, id string, n int) (*models.Sweet, error) {
	available := 0
	for range decrementAttempts {
		s, applied, err := r.tryDecrement(ctx, id, n)
		if err != nil {
			return nil, err
		}
		if applied {
			return s, nil
		}
		available = s.Quantity
		if available < n {
			return nil, &repo.StockError{Available: available, Requested: n}
		}
	}
	return nil, &repo.StockError{Available: min(available, n-1), Requested: n}
}

// tryDecrement runs the conditional update and reads the row back in one
// transaction, so a successful result carries this write's quantity.
func (r *GormRepo) tryDecrement(ctx context.Context, id string, n int) (*models.Sweet, bool, error) {
	var s models.Sweet
	applied := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Sweet{}).
			Where("id = ? AND quantity >= ?", id, n).
			Updates(map[string]any{
				"quantity":   gorm.Expr("quantity - ?", n),
				"updated_at": r.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected == 1
		return notFound(tx.Where("id = ?", id).First(&s).Error)
	})
	if err != nil {
		return nil, false, err
	}
	return &s, applied, nil
}

func (r *GormRepo) IncrementQuantity(ctx context.Context, id string, n int) (*models.Sweet, error) {
	var s models.Sweet
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Sweet{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"quantity":   gorm.Expr("quantity + ?", n),
				"updated_at": r.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return tx.Where("id = ?", id).First(&s).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}
