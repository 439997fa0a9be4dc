package domain

import (
	"encoding/json"
	"time"
)

// Ledger event types. The append-only event log is the auditable history
// of the ledger: every successful mutation appends its event(s) in the
// same transaction as the state change, so current state is always
// reconstructible by replay.
const (
	EventUserRegistered    = "user.registered"
	EventProductListed     = "product.listed"
	EventProductEdited     = "product.edited"
	EventProductUnlisted   = "product.unlisted"
	EventProductPurchased  = "product.purchased"
	EventProductDelivered  = "product.delivered"
	EventProductRefunded   = "product.refunded"
	EventReputationUpdated = "reputation.updated"
)

// LedgerEvent is one row of the append-only event log. Seq is assigned by
// the database and totally orders the history.
type LedgerEvent struct {
	Seq       uint64          `json:"seq"`
	Type      string          `json:"type"`
	ProductID *uint64         `json:"product_id,omitempty"` // nil for user events
	Actor     string          `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewLedgerEvent builds an event with a marshalled payload.
func NewLedgerEvent(eventType string, productID *uint64, actor string, payload interface{}) (*LedgerEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &LedgerEvent{
		Type:      eventType,
		ProductID: productID,
		Actor:     actor,
		Payload:   data,
	}, nil
}

// UnmarshalPayload unmarshals the event payload into the given struct.
func (e *LedgerEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// UserRegisteredPayload mirrors UserRegistered(address, username, fullName, country).
type UserRegisteredPayload struct {
	Address  string `json:"address"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Country  string `json:"country"`
}

// ProductListedPayload mirrors ProductListed(id, seller, image, category,
// location, condition, timestamp, reputation, price).
type ProductListedPayload struct {
	ID         uint64    `json:"id"`
	Seller     string    `json:"seller"`
	Image      string    `json:"image"`
	Category   string    `json:"category"`
	Location   string    `json:"location"`
	Condition  Condition `json:"condition"`
	Timestamp  time.Time `json:"timestamp"`
	Reputation int64     `json:"reputation"`
	Price      int64     `json:"price"`
}

// ProductEditedPayload mirrors ProductEdited(id).
type ProductEditedPayload struct {
	ID uint64 `json:"id"`
}

// ProductUnlistedPayload mirrors ProductUnlisted(id).
type ProductUnlistedPayload struct {
	ID uint64 `json:"id"`
}

// ProductPurchasedPayload mirrors ProductPurchased(id, buyer, price).
type ProductPurchasedPayload struct {
	ID    uint64 `json:"id"`
	Buyer string `json:"buyer"`
	Price int64  `json:"price"`
}

// ProductDeliveredPayload mirrors ProductDelivered(id).
type ProductDeliveredPayload struct {
	ID uint64 `json:"id"`
}

// ProductRefundedPayload mirrors ProductRefunded(id).
type ProductRefundedPayload struct {
	ID uint64 `json:"id"`
}

// ReputationUpdatedPayload mirrors ReputationUpdated(seller, newScore).
type ReputationUpdatedPayload struct {
	Seller   string `json:"seller"`
	NewScore int64  `json:"new_score"`
}
