package gormrepo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/Skotchmaster/sweet_shop/internal/repo"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type GormRepo struct {
	DB *gorm.DB
}

var _ repo.Store = (*GormRepo)(nil)

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(&models.User{}, &models.Sweet{})
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormRepo) Close(_ context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *GormRepo) now() time.Time {
	return r.DB.NowFunc()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// likePattern turns user input into a LIKE pattern matching it as a
// literal, lower-cased substring. Use with ESCAPE '\'.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
