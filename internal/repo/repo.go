// Package repo declares the storage contracts shared by the SQL and
// MongoDB backends.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/sweet_shop/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockError reports a rejected decrement. It matches ErrInsufficientStock.
type StockError struct {
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.Available, e.Requested)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

type UserRepo interface {
	// CreateUser returns ErrDuplicate when the email is taken.
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type SweetRepo interface {
	CreateSweet(ctx context.Context, s *models.Sweet) error
	GetSweet(ctx context.Context, id string) (*models.Sweet, error)
	ListSweets(ctx context.Context) ([]models.Sweet, error)
	SearchSweets(ctx context.Context, f models.SweetFilter) ([]models.Sweet, error)
	UpdateSweet(ctx context.Context, id string, p models.SweetPatch) (*models.Sweet, error)
	DeleteSweet(ctx context.Context, id string) error

	// DecrementQuantity removes n units in one conditional write. It
	// returns ErrNotFound or a *StockError and leaves the record untouched
	// when the stock is short.
	DecrementQuantity(ctx context.Context, id string, n int) (*models.Sweet, error)
	IncrementQuantity(ctx context.Context, id string, n int) (*models.Sweet, error)
}

type Store interface {
	UserRepo
	SweetRepo
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
