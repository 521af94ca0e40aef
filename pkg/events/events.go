package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/verimart/verimart/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	UserRegistered  = "user.registered"
	AccountVerified = "account.verified"

	SellerApplied  = "seller.applied"
	SellerApproved = "seller.approved"
	SellerRevoked  = "seller.revoked"
	AdminCreated   = "admin.created"

	ItemCreated  = "item.created"
	ItemReserved = "item.reserved"
	ItemSold     = "item.sold"
	ItemReleased = "item.released"
)

// Event payloads
type UserRegisteredEvent struct {
	Username     string    `json:"username"`
	RegisteredAt time.Time `json:"registered_at"`
}

type AccountVerifiedEvent struct {
	Username   string    `json:"username"`
	VerifiedAt time.Time `json:"verified_at"`
}

type SellerAppliedEvent struct {
	Username  string    `json:"username"`
	AppliedAt time.Time `json:"applied_at"`
}

type SellerApprovedEvent struct {
	Username   string    `json:"username"`
	SellerID   int64     `json:"seller_id"`
	ApprovedAt time.Time `json:"approved_at"`
}

type SellerRevokedEvent struct {
	Username  string    `json:"username"`
	RevokedAt time.Time `json:"revoked_at"`
}

type AdminCreatedEvent struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type ItemEvent struct {
	ItemID   int64  `json:"item_id"`
	SellerID int64  `json:"seller_id"`
	BuyerID  *int64 `json:"buyer_id,omitempty"`
	Status   int    `json:"status"`
}
