package transport

import (
	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/Skotchmaster/sweet_shop/internal/service"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateSweetRequest struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
}

// ToInput maps absent numbers to -1 so they fail the non-negative checks.
func (r CreateSweetRequest) ToInput() service.SweetInput {
	in := service.SweetInput{
		Name:        r.Name,
		Category:    r.Category,
		Price:       -1,
		Quantity:    -1,
		Description: r.Description,
		ImageURL:    r.ImageURL,
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	if r.Quantity != nil {
		in.Quantity = *r.Quantity
	}
	return in
}

type PatchSweetRequest struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
	Description *string  `json:"description"`
	ImageURL    *string  `json:"imageUrl"`
}

func (r PatchSweetRequest) ToPatch() models.SweetPatch {
	return models.SweetPatch{
		Name:        r.Name,
		Category:    r.Category,
		Price:       r.Price,
		Quantity:    r.Quantity,
		Description: r.Description,
		ImageURL:    r.ImageURL,
	}
}

type QuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (r QuantityRequest) Value() int {
	if r.Quantity == nil {
		return 0
	}
	return *r.Quantity
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func NewUserResponse(u models.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

type AuthResponse struct {
	Success bool         `json:"success"`
	User    UserResponse `json:"user"`
	Token   string       `json:"token"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ListResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    []models.Sweet `json:"data"`
	Count   int            `json:"count"`
}

type ErrorResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Errors  []service.FieldError `json:"errors,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
