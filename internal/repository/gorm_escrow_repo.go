package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Clement-coder/retrust-marketplace/internal/domain"
	"github.com/Clement-coder/retrust-marketplace/pkg/log"
)

// GormEscrowRepository implements EscrowRepository using GORM.
//
// Every mutation runs in one transaction with conditional updates on the
// current state (sold = false, state = Locked). The RowsAffected check
// turns a lost race into a typed error before any partial effect is
// visible; there is no path that resolves a lock twice.
type GormEscrowRepository struct {
	db *gorm.DB
}

// NewGormEscrowRepository creates a new GORM-based escrow repository.
func NewGormEscrowRepository(db *gorm.DB) *GormEscrowRepository {
	return &GormEscrowRepository{db: db}
}

// Purchase marks the product sold and creates its escrow lock.
func (r *GormEscrowRepository) Purchase(ctx context.Context, productID uint64, buyer string, amount int64, evt *domain.LedgerEvent) error {
	l := log.Ctx(ctx)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.ProductModel{}).
			Where("id = ? AND listed = ? AND sold = ?", productID, true, false).
			Update("sold", true)
		if result.Error != nil {
			l.Error().Err(result.Error).Uint64(log.FieldProductID, productID).Msg("failed to mark product sold")
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProductUnavailable
		}

		lock := &domain.EscrowLockModel{
			ProductID: productID,
			Buyer:     buyer,
			Amount:    amount,
			State:     string(domain.LockStateLocked),
		}
		if err := tx.Create(lock).Error; err != nil {
			l.Error().Err(err).Uint64(log.FieldProductID, productID).Msg("failed to create escrow lock")
			return err
		}

		evtModel := domain.LedgerEventToModel(evt)
		if err := tx.Create(evtModel).Error; err != nil {
			return err
		}
		evt.Seq = evtModel.Seq
		evt.CreatedAt = evtModel.CreatedAt
		return nil
	})
}

// Release resolves the lock to Released, credits the seller, increments
// the seller's reputation, and appends both events.
func (r *GormEscrowRepository) Release(ctx context.Context, productID uint64, seller string, amount int64,
	delivered *domain.LedgerEvent, reputation func(newScore int64) (*domain.LedgerEvent, error)) (int64, error) {
	l := log.Ctx(ctx)

	var newScore int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.resolveLock(tx, productID, domain.LockStateReleased); err != nil {
			return err
		}

		if err := creditBalance(tx, seller, amount); err != nil {
			l.Error().Err(err).Str(log.FieldAddress, seller).Msg("failed to credit seller balance")
			return err
		}

		score, err := incrementReputation(tx, seller)
		if err != nil {
			l.Error().Err(err).Str(log.FieldAddress, seller).Msg("failed to increment reputation")
			return err
		}
		newScore = score

		for _, e := range []*domain.LedgerEvent{delivered} {
			evtModel := domain.LedgerEventToModel(e)
			if err := tx.Create(evtModel).Error; err != nil {
				return err
			}
			e.Seq = evtModel.Seq
			e.CreatedAt = evtModel.CreatedAt
		}

		repEvt, err := reputation(newScore)
		if err != nil {
			return err
		}
		repModel := domain.LedgerEventToModel(repEvt)
		if err := tx.Create(repModel).Error; err != nil {
			return err
		}
		repEvt.Seq = repModel.Seq
		repEvt.CreatedAt = repModel.CreatedAt
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newScore, nil
}

// Refund resolves the lock to Refunded and credits the buyer.
func (r *GormEscrowRepository) Refund(ctx context.Context, productID uint64, buyer string, amount int64, evt *domain.LedgerEvent) error {
	l := log.Ctx(ctx)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.resolveLock(tx, productID, domain.LockStateRefunded); err != nil {
			return err
		}

		if err := creditBalance(tx, buyer, amount); err != nil {
			l.Error().Err(err).Str(log.FieldAddress, buyer).Msg("failed to credit buyer balance")
			return err
		}

		evtModel := domain.LedgerEventToModel(evt)
		if err := tx.Create(evtModel).Error; err != nil {
			return err
		}
		evt.Seq = evtModel.Seq
		evt.CreatedAt = evtModel.CreatedAt
		return nil
	})
}

// GetLock retrieves the escrow lock for a product.
func (r *GormEscrowRepository) GetLock(ctx context.Context, productID uint64) (*domain.EscrowLock, error) {
	var model domain.EscrowLockModel
	result := r.db.WithContext(ctx).First(&model, "product_id = ?", productID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrLockNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// resolveLock transitions a Locked lock to a terminal state. The state
// guard in the WHERE clause is what makes double resolution impossible.
func (r *GormEscrowRepository) resolveLock(tx *gorm.DB, productID uint64, to domain.LockState) error {
	now := time.Now()
	result := tx.Model(&domain.EscrowLockModel{}).
		Where("product_id = ? AND state = ?", productID, string(domain.LockStateLocked)).
		Updates(map[string]interface{}{
			"state":       string(to),
			"resolved_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLockNotActive
	}
	return nil
}

// creditBalance upserts address balance += amount.
func creditBalance(tx *gorm.DB, address string, amount int64) error {
	var model domain.BalanceModel
	err := tx.First(&model, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&domain.BalanceModel{Address: address, Amount: amount}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&domain.BalanceModel{}).
		Where("address = ?", address).
		Update("amount", gorm.Expr("amount + ?", amount)).Error
}

// incrementReputation upserts address score += 1 and returns the new score.
func incrementReputation(tx *gorm.DB, address string) (int64, error) {
	var model domain.ReputationModel
	err := tx.First(&model, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := tx.Create(&domain.ReputationModel{Address: address, Score: 1}).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}

	if err := tx.Model(&domain.ReputationModel{}).
		Where("address = ?", address).
		Update("score", gorm.Expr("score + ?", 1)).Error; err != nil {
		return 0, err
	}
	return model.Score + 1, nil
}
