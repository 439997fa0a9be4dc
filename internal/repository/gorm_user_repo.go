package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Clement-coder/retrust-marketplace/internal/domain"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a registry record and appends its registration event in
// one transaction. The address is checked before insert so re-registering
// an existing address reports the address collision even when the resubmitted
// username would trip its unique index first; a racer that slips past the
// check still gets the typed error from the constraint violation.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User, evt *domain.LedgerEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.UserModel
		err := tx.First(&existing, "address = ?", user.Address).Error
		if err == nil {
			return ErrAddressExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		model := domain.UserToModel(user)
		if err := tx.Create(model).Error; err != nil {
			return r.handleError(err)
		}
		user.CreatedAt = model.CreatedAt

		evtModel := domain.LedgerEventToModel(evt)
		if err := tx.Create(evtModel).Error; err != nil {
			return err
		}
		evt.Seq = evtModel.Seq
		evt.CreatedAt = evtModel.CreatedAt
		return nil
	})
}

// GetByAddress retrieves a user by address.
func (r *GormUserRepository) GetByAddress(ctx context.Context, address string) (*domain.User, error) {
	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, "address = ?", address)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// handleError converts database-specific errors to domain errors.
func (r *GormUserRepository) handleError(err error) error {
	errStr := err.Error()

	// PostgreSQL / SQLite unique constraint violation
	if strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "UNIQUE constraint") {
		if strings.Contains(errStr, "username") {
			return ErrUsernameExists
		}
		return ErrAddressExists
	}

	// MySQL unique constraint violation
	if strings.Contains(errStr, "Duplicate entry") {
		if strings.Contains(errStr, "username") {
			return ErrUsernameExists
		}
		return ErrAddressExists
	}

	return err
}
