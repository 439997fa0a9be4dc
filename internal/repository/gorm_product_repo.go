package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Clement-coder/retrust-marketplace/internal/domain"
	"github.com/Clement-coder/retrust-marketplace/pkg/log"
)

// GormProductRepository implements ProductRepository using GORM.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GORM-based product repository.
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// Create stores a new listing and its event. The product id is assigned
// by the database autoincrement and is never reused; the listed event is
// built from the assigned id and timestamp inside the transaction.
func (r *GormProductRepository) Create(ctx context.Context, product *domain.Product,
	listed func(id uint64, listedAt time.Time) (*domain.LedgerEvent, error)) (*domain.LedgerEvent, error) {
	l := log.Ctx(ctx)

	var evt *domain.LedgerEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := domain.ProductToModel(product)
		if err := tx.Create(model).Error; err != nil {
			l.Error().Err(err).Msg("failed to create product in db")
			return err
		}
		product.ID = model.ID
		product.ListedAt = model.ListedAt

		e, err := listed(product.ID, product.ListedAt)
		if err != nil {
			return err
		}
		evtModel := domain.LedgerEventToModel(e)
		if err := tx.Create(evtModel).Error; err != nil {
			return err
		}
		e.Seq = evtModel.Seq
		e.CreatedAt = evtModel.CreatedAt
		evt = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evt, nil
}

// GetByID retrieves a product by id.
func (r *GormProductRepository) GetByID(ctx context.Context, id uint64) (*domain.Product, error) {
	var model domain.ProductModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// UpdateEditable rewrites the editable fields of an unsold product and
// appends the edit event. The sold guard in the WHERE clause backstops
// the service-level check.
func (r *GormProductRepository) UpdateEditable(ctx context.Context, product *domain.Product, evt *domain.LedgerEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.ProductModel{}).
			Where("id = ? AND sold = ?", product.ID, false).
			Updates(map[string]interface{}{
				"description": product.Description,
				"image":       product.Image,
				"category":    product.Category,
				"location":    product.Location,
				"condition":   string(product.Condition),
				"price":       product.Price,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProductConflict
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

// Unlist clears the listed flag of an unsold, listed product and appends
// the unlist event.
func (r *GormProductRepository) Unlist(ctx context.Context, id uint64, evt *domain.LedgerEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.ProductModel{}).
			Where("id = ? AND sold = ? AND listed = ?", id, false, true).
			Update("listed", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProductConflict
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

// List retrieves products with pagination and optional filters.
func (r *GormProductRepository) List(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]domain.Product, int, error) {
	l := log.Ctx(ctx)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize

	query := r.db.WithContext(ctx).Model(&domain.ProductModel{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Seller != "" {
		query = query.Where("seller = ?", filter.Seller)
	}
	if filter.ListedOnly {
		query = query.Where("listed = ? AND sold = ?", true, false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error().Err(err).Msg("failed to count products")
		return nil, 0, err
	}

	var models []domain.ProductModel
	if err := query.Order("id DESC").Offset(offset).Limit(pageSize).Find(&models).Error; err != nil {
		l.Error().Err(err).Msg("failed to list products from db")
		return nil, 0, err
	}

	products := make([]domain.Product, len(models))
	for i, model := range models {
		products[i] = *model.ToDomain()
	}

	return products, int(total), nil
}
