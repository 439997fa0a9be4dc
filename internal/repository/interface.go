package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Clement-coder/retrust-marketplace/internal/domain"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrAddressExists      = errors.New("address already registered")
	ErrUsernameExists     = errors.New("username already taken")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product not available for purchase")
	ErrProductConflict    = errors.New("product state changed concurrently")
	ErrLockNotFound       = errors.New("escrow lock not found")
	ErrLockNotActive      = errors.New("escrow lock is not active")
)

// UserRepository persists registry records. Mutations append the supplied
// ledger event in the same transaction as the state change.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User, evt *domain.LedgerEvent) error
	GetByAddress(ctx context.Context, address string) (*domain.User, error)
}

// ProductRepository persists catalog records. Products are never deleted.
type ProductRepository interface {
	// Create stores a new listing and appends the listed event built from
	// the database-assigned id and timestamp, all in one transaction.
	Create(ctx context.Context, product *domain.Product,
		listed func(id uint64, listedAt time.Time) (*domain.LedgerEvent, error)) (*domain.LedgerEvent, error)
	GetByID(ctx context.Context, id uint64) (*domain.Product, error)
	// UpdateEditable rewrites the editable fields of an unsold product.
	UpdateEditable(ctx context.Context, product *domain.Product, evt *domain.LedgerEvent) error
	// Unlist clears the listed flag of an unsold, listed product.
	Unlist(ctx context.Context, id uint64, evt *domain.LedgerEvent) error
	List(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]domain.Product, int, error)
}

// EscrowRepository owns the vault's money movement. Every method commits
// the product row, the lock row, any balance/reputation change, and the
// ledger event(s) as one atomic unit, guarded by conditional updates so a
// lost race surfaces as a typed error instead of a double spend.
type EscrowRepository interface {
	// Purchase marks the product sold and creates its Locked escrow lock.
	// Fails with ErrProductUnavailable if the product is missing, unlisted,
	// or already sold.
	Purchase(ctx context.Context, productID uint64, buyer string, amount int64, evt *domain.LedgerEvent) error
	// Release resolves the lock to Released, credits the seller's balance,
	// increments the seller's reputation, and appends the delivered event
	// plus the reputation event built from the post-increment score.
	// Fails with ErrLockNotActive if the lock is absent or terminal.
	Release(ctx context.Context, productID uint64, seller string, amount int64,
		delivered *domain.LedgerEvent, reputation func(newScore int64) (*domain.LedgerEvent, error)) (int64, error)
	// Refund resolves the lock to Refunded and credits the buyer's balance.
	// Fails with ErrLockNotActive if the lock is absent or terminal.
	Refund(ctx context.Context, productID uint64, buyer string, amount int64, evt *domain.LedgerEvent) error
	GetLock(ctx context.Context, productID uint64) (*domain.EscrowLock, error)
}

// ReputationRepository reads the derived reputation counter.
type ReputationRepository interface {
	// Get returns the score for an address, zero when unknown.
	Get(ctx context.Context, address string) (int64, error)
}

// BalanceRepository reads credited balances.
type BalanceRepository interface {
	// Get returns the balance for an address, zero when unknown.
	Get(ctx context.Context, address string) (int64, error)
}

// EventRepository reads the append-only ledger event log.
type EventRepository interface {
	ListByProduct(ctx context.Context, productID uint64) ([]domain.LedgerEvent, error)
}
