package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Clement-coder/retrust-marketplace/internal/domain"
)

// GormReputationRepository implements ReputationRepository using GORM.
type GormReputationRepository struct {
	db *gorm.DB
}

// NewGormReputationRepository creates a new GORM-based reputation repository.
func NewGormReputationRepository(db *gorm.DB) *GormReputationRepository {
	return &GormReputationRepository{db: db}
}

// Get returns the reputation score for an address, zero when unknown.
func (r *GormReputationRepository) Get(ctx context.Context, address string) (int64, error) {
	var model domain.ReputationModel
	err := r.db.WithContext(ctx).First(&model, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return model.Score, nil
}

// GormBalanceRepository implements BalanceRepository using GORM.
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewGormBalanceRepository creates a new GORM-based balance repository.
func NewGormBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

// Get returns the balance for an address, zero when unknown.
func (r *GormBalanceRepository) Get(ctx context.Context, address string) (int64, error) {
	var model domain.BalanceModel
	err := r.db.WithContext(ctx).First(&model, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return model.Amount, nil
}

// GormEventRepository implements EventRepository using GORM.
type GormEventRepository struct {
	db *gorm.DB
}

// NewGormEventRepository creates a new GORM-based event repository.
func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

// ListByProduct returns a product's event history in append order.
func (r *GormEventRepository) ListByProduct(ctx context.Context, productID uint64) ([]domain.LedgerEvent, error) {
	var models []domain.LedgerEventModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("seq ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	events := make([]domain.LedgerEvent, len(models))
	for i, model := range models {
		events[i] = *model.ToDomain()
	}
	return events, nil
}
