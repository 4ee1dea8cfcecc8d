package gormrepo

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/Skotchmaster/sweet_shop/internal/repo"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("email %q: %w", u.Email, repo.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}
