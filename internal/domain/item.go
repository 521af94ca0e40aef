package domain

import (
	"fmt"
	"strings"
	"time"
)

// ItemStatus values are stored as integers; the lifecycle only moves
// AVAILABLE -> RESERVED -> SOLD, with RESERVED -> AVAILABLE when a sale is
// denied. Every transition is applied as a conditioned write in the store.
type ItemStatus int

const (
	ItemAvailable ItemStatus = 1
	ItemReserved  ItemStatus = 2
	ItemSold      ItemStatus = 3
)

func (s ItemStatus) String() string {
	switch s {
	case ItemAvailable:
		return "available"
	case ItemReserved:
		return "reserved"
	case ItemSold:
		return "sold"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type Item struct {
	ID          int64      `json:"id"`
	SellerID    int64      `json:"seller_id"`
	BuyerID     *int64     `json:"buyer_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	PriceCents  int64      `json:"price_cents"`
	Status      ItemStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
}

func (r *CreateItemRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *CreateItemRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("item name is required")
	}
	if len(r.Name) > 200 {
		return fmt.Errorf("item name must be at most 200 characters")
	}
	if r.PriceCents < 0 {
		return fmt.Errorf("price must not be negative")
	}
	return nil
}
