package domain

import "time"

// LockState is the closed set of escrow lock states. A lock is created
// Locked and resolves exactly once to Released or Refunded; both are
// terminal.
type LockState string

const (
	LockStateLocked   LockState = "Locked"
	LockStateReleased LockState = "Released"
	LockStateRefunded LockState = "Refunded"
)

// Valid reports whether the state is one of the enumerated values.
func (s LockState) Valid() bool {
	switch s {
	case LockStateLocked, LockStateReleased, LockStateRefunded:
		return true
	}
	return false
}

// Terminal reports whether the lock can no longer be resolved.
func (s LockState) Terminal() bool {
	return s == LockStateReleased || s == LockStateRefunded
}

// EscrowLock custodies a buyer's funds for one product between purchase
// and resolution. One lock per product, ever.
type EscrowLock struct {
	ProductID  uint64     `json:"product_id"`
	Buyer      string     `json:"buyer"`
	Amount     int64      `json:"amount"`
	State      LockState  `json:"state"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// BuyRequest carries the value sent with a purchase. It must equal the
// product price exactly; no partial locks. Validation of the amount is
// the vault's job, so a literal zero binds fine and gets the typed error.
type BuyRequest struct {
	Amount int64 `json:"amount"`
}

// EscrowLockResponse represents a lock in API responses.
type EscrowLockResponse struct {
	ProductID  uint64     `json:"product_id"`
	Buyer      string     `json:"buyer"`
	Amount     int64      `json:"amount"`
	State      LockState  `json:"state"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// BalanceResponse reports the withdrawable funds credited to an address
// by escrow resolutions.
type BalanceResponse struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

// ReputationResponse reports an address's confirmed-sale counter.
type ReputationResponse struct {
	Address string `json:"address"`
	Score   int64  `json:"score"`
}

// ToResponse converts EscrowLock to EscrowLockResponse.
func (l *EscrowLock) ToResponse() EscrowLockResponse {
	return EscrowLockResponse{
		ProductID:  l.ProductID,
		Buyer:      l.Buyer,
		Amount:     l.Amount,
		State:      l.State,
		CreatedAt:  l.CreatedAt,
		ResolvedAt: l.ResolvedAt,
	}
}
