package service

import (
	"context"

	"github.com/Clement-coder/retrust-marketplace/internal/domain"
)

// RegistryService defines user registration business logic.
type RegistryService interface {
	// Register creates the one-shot registry record for the caller address.
	Register(ctx context.Context, address string, req *domain.RegisterRequest) (*domain.UserResponse, error)
	// Lookup is a total read: never an error for unknown addresses.
	Lookup(ctx context.Context, address string) (*domain.LookupResponse, error)
}

// CatalogService defines product listing business logic.
type CatalogService interface {
	ListProduct(ctx context.Context, seller string, req *domain.ListProductRequest) (*domain.ProductResponse, error)
	GetProduct(ctx context.Context, id uint64) (*domain.ProductResponse, error)
	EditProduct(ctx context.Context, caller string, id uint64, req *domain.EditProductRequest) (*domain.ProductResponse, error)
	UnlistProduct(ctx context.Context, caller string, id uint64) error
	BrowseProducts(ctx context.Context, filter domain.ProductFilter, page, pageSize int) (*domain.ListProductsResponse, error)
	// GenerateImageUploadURL returns a presigned PUT URL for direct image upload.
	GenerateImageUploadURL(ctx context.Context, seller, contentType string) (*domain.ImagePresignResponse, error)
}

// EscrowService defines the vault state machine: buy locks funds,
// confirm releases them to the seller, refund returns them to the buyer.
type EscrowService interface {
	Buy(ctx context.Context, buyer string, productID uint64, req *domain.BuyRequest) (*domain.EscrowLockResponse, error)
	ConfirmReceived(ctx context.Context, caller string, productID uint64) (*domain.EscrowLockResponse, error)
	RequestRefund(ctx context.Context, caller string, productID uint64) (*domain.EscrowLockResponse, error)
	GetLock(ctx context.Context, productID uint64) (*domain.EscrowLockResponse, error)
	GetEvents(ctx context.Context, productID uint64) ([]domain.LedgerEvent, error)
}

// ReputationService reads the derived counters credited by escrow
// resolutions.
type ReputationService interface {
	GetReputation(ctx context.Context, address string) (*domain.ReputationResponse, error)
	GetBalance(ctx context.Context, address string) (*domain.BalanceResponse, error)
}
