package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var Categories = []string{"chocolate", "candy", "gum", "lollipop", "other"}

type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"        bson:"_id"`
	Email        string    `gorm:"uniqueIndex;not null"        json:"email"     bson:"email"`
	PasswordHash string    `gorm:"not null"                    json:"-"         bson:"password_hash"`
	Name         string    `gorm:"not null"                    json:"name"      bson:"name"`
	Role         string    `gorm:"not null;default:user"       json:"role"      bson:"role"`
	CreatedAt    time.Time `                                   json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `                                   json:"updatedAt" bson:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Sweet struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"         json:"id"                    bson:"_id"`
	Name        string    `gorm:"not null;index"                      json:"name"                  bson:"name"`
	Category    string    `gorm:"not null;index"                      json:"category"              bson:"category"`
	Price       float64   `gorm:"not null;check:price >= 0"           json:"price"                 bson:"price"`
	Quantity    int       `gorm:"not null;check:quantity >= 0"        json:"quantity"              bson:"quantity"`
	Description string    `gorm:"not null;default:''"                 json:"description,omitempty" bson:"description,omitempty"`
	ImageURL    string    `gorm:"column:image_url;not null;default:''" json:"imageUrl,omitempty"    bson:"image_url,omitempty"`
	CreatedAt   time.Time `gorm:"index"                               json:"createdAt"             bson:"created_at"`
	UpdatedAt   time.Time `                                           json:"updatedAt"             bson:"updated_at"`
}

func (s *Sweet) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s Sweet) InStock() bool { return s.Quantity > 0 }

// SweetPatch carries the fields of an update; nil means unchanged.
type SweetPatch struct {
	Name        *string
	Category    *string
	Price       *float64
	Quantity    *int
	Description *string
	ImageURL    *string
}

func (p SweetPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Price == nil &&
		p.Quantity == nil && p.Description == nil && p.ImageURL == nil
}

// SweetFilter narrows a search. Name and Category match case-insensitive
// substrings; MinPrice and MaxPrice are inclusive.
type SweetFilter struct {
	Name     string
	Category string
	MinPrice *float64
	MaxPrice *float64
}
