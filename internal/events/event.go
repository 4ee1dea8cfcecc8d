package events

import (
	"time"

	"github.com/Skotchmaster/sweet_shop/internal/models"
)

type UserEvent struct {
	Type   string    `json:"type"`
	UserID string    `json:"userID"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	At     time.Time `json:"at"`
}

type SweetEvent struct {
	Type     string    `json:"type"`
	SweetID  string    `json:"sweetID"`
	Name     string    `json:"name,omitempty"`
	Quantity int       `json:"quantity"`
	InStock  bool      `json:"inStock"`
	Delta    int       `json:"delta,omitempty"`
	ActorID  string    `json:"actorID,omitempty"`
	At       time.Time `json:"at"`
}

func NewSweetEvent(typ string, s models.Sweet, delta int, actorID string) SweetEvent {
	return SweetEvent{
		Type:     typ,
		SweetID:  s.ID,
		Name:     s.Name,
		Quantity: s.Quantity,
		InStock:  s.InStock(),
		Delta:    delta,
		ActorID:  actorID,
		At:       time.Now().UTC(),
	}
}
