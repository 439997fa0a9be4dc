package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Clement-coder/retrust-marketplace/internal/audit"
	"github.com/Clement-coder/retrust-marketplace/internal/cache"
	"github.com/Clement-coder/retrust-marketplace/internal/domain"
	"github.com/Clement-coder/retrust-marketplace/internal/events"
	"github.com/Clement-coder/retrust-marketplace/internal/repository"
	"github.com/Clement-coder/retrust-marketplace/pkg/log"
	"github.com/Clement-coder/retrust-marketplace/pkg/storage"
)

const presignExpiry = 15 * time.Minute

// catalogServiceImpl implements CatalogService.
type catalogServiceImpl struct {
	products   repository.ProductRepository
	reputation repository.ReputationRepository
	cache      cache.ProductCache
	cacheTTL   time.Duration
	storage    storage.Storage
	publisher  *events.Publisher
	sf         singleflight.Group
}

// NewCatalogService creates a new catalog service. Cache may be nil, in
// which case every read goes to the database.
func NewCatalogService(products repository.ProductRepository, reputation repository.ReputationRepository,
	productCache cache.ProductCache, cacheTTL time.Duration, store storage.Storage, publisher *events.Publisher) CatalogService {
	return &catalogServiceImpl{
		products:   products,
		reputation: reputation,
		cache:      productCache,
		cacheTTL:   cacheTTL,
		storage:    store,
		publisher:  publisher,
	}
}

// ListProduct creates a new listing. The seller's current reputation is
// snapshotted into the product at this moment and never updated after.
func (s *catalogServiceImpl) ListProduct(ctx context.Context, seller string, req *domain.ListProductRequest) (*domain.ProductResponse, error) {
	l := log.Ctx(ctx)

	if req.Price <= 0 {
		return nil, ErrInvalidAmount
	}
	condition, err := domain.ParseCondition(req.Condition)
	if err != nil {
		return nil, ErrInvalidCondition
	}

	score, err := s.reputation.Get(ctx, seller)
	if err != nil {
		l.Error().Err(err).Str(log.FieldAddress, seller).Msg("failed to read reputation for listing snapshot")
		return nil, err
	}

	product := &domain.Product{
		Seller:      seller,
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Category:    req.Category,
		Location:    req.Location,
		Condition:   condition,
		Reputation:  score,
		Price:       req.Price,
		Sold:        false,
		Listed:      true,
	}

	evt, err := s.products.Create(ctx, product, func(id uint64, listedAt time.Time) (*domain.LedgerEvent, error) {
		return domain.NewLedgerEvent(domain.EventProductListed, &id, seller, domain.ProductListedPayload{
			ID:         id,
			Seller:     seller,
			Image:      product.Image,
			Category:   product.Category,
			Location:   product.Location,
			Condition:  product.Condition,
			Timestamp:  listedAt,
			Reputation: product.Reputation,
			Price:      product.Price,
		})
	})
	if err != nil {
		l.Error().Err(err).Str(log.FieldAddress, seller).Msg("failed to create product")
		return nil, err
	}

	s.publisher.Publish(ctx, evt)
	audit.LogWithDetail(ctx, audit.ActionListProduct, seller, strconv.FormatUint(product.ID, 10), "product listed")

	resp := product.ToResponse()
	return &resp, nil
}

// GetProduct retrieves a product, serving from cache when possible.
// Concurrent misses for the same id collapse into one database read.
func (s *catalogServiceImpl) GetProduct(ctx context.Context, id uint64) (*domain.ProductResponse, error) {
	l := log.Ctx(ctx)

	if s.cache != nil {
		key := s.cache.BuildKeyByID(id)
		if cached, err := s.cache.Get(ctx, key); err == nil {
			resp := cached.Product.ToResponse()
			return &resp, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			l.Warn().Err(err).Uint64(log.FieldProductID, id).Msg("product cache read failed")
		}
	}

	v, err, _ := s.sf.Do(strconv.FormatUint(id, 10), func() (interface{}, error) {
		product, err := s.products.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			key := s.cache.BuildKeyByID(id)
			if err := s.cache.Set(ctx, key, &cache.ProductCacheResult{Product: *product}, s.cacheTTL); err != nil {
				l.Warn().Err(err).Uint64(log.FieldProductID, id).Msg("product cache write failed")
			}
		}
		return product, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		l.Error().Err(err).Uint64(log.FieldProductID, id).Msg("failed to get product")
		return nil, err
	}

	resp := v.(*domain.Product).ToResponse()
	return &resp, nil
}

// EditProduct rewrites the editable fields of the caller's unsold
// product. The name is immutable after listing.
func (s *catalogServiceImpl) EditProduct(ctx context.Context, caller string, id uint64, req *domain.EditProductRequest) (*domain.ProductResponse, error) {
	l := log.Ctx(ctx)

	if req.Price <= 0 {
		return nil, ErrInvalidAmount
	}
	condition, err := domain.ParseCondition(req.Condition)
	if err != nil {
		return nil, ErrInvalidCondition
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if product.Seller != caller {
		return nil, ErrNotAuthorized
	}
	if product.Sold {
		return nil, ErrProductAlreadySold
	}

	product.Description = req.Description
	product.Image = req.Image
	product.Category = req.Category
	product.Location = req.Location
	product.Condition = condition
	product.Price = req.Price

	evt, err := domain.NewLedgerEvent(domain.EventProductEdited, &id, caller, domain.ProductEditedPayload{ID: id})
	if err != nil {
		return nil, err
	}

	if err := s.products.UpdateEditable(ctx, product, evt); err != nil {
		if errors.Is(err, repository.ErrProductConflict) {
			return nil, ErrProductAlreadySold
		}
		l.Error().Err(err).Uint64(log.FieldProductID, id).Msg("failed to edit product")
		return nil, err
	}

	s.invalidate(ctx, id)
	s.publisher.Publish(ctx, evt)
	audit.LogWithDetail(ctx, audit.ActionEditProduct, caller, strconv.FormatUint(id, 10), "product edited")

	resp := product.ToResponse()
	return &resp, nil
}

// UnlistProduct withdraws the caller's product from sale. The record is
// retained; products are never deleted.
func (s *catalogServiceImpl) UnlistProduct(ctx context.Context, caller string, id uint64) error {
	l := log.Ctx(ctx)

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	if product.Seller != caller {
		return ErrNotAuthorized
	}
	if product.Sold {
		return ErrProductAlreadySold
	}
	if !product.Listed {
		return ErrProductNotListed
	}

	evt, err := domain.NewLedgerEvent(domain.EventProductUnlisted, &id, caller, domain.ProductUnlistedPayload{ID: id})
	if err != nil {
		return err
	}

	if err := s.products.Unlist(ctx, id, evt); err != nil {
		if errors.Is(err, repository.ErrProductConflict) {
			return ErrProductAlreadySold
		}
		l.Error().Err(err).Uint64(log.FieldProductID, id).Msg("failed to unlist product")
		return err
	}

	s.invalidate(ctx, id)
	s.publisher.Publish(ctx, evt)
	audit.LogWithDetail(ctx, audit.ActionUnlistProduct, caller, strconv.FormatUint(id, 10), "product unlisted")
	return nil
}

// BrowseProducts retrieves products with pagination and optional filters.
func (s *catalogServiceImpl) BrowseProducts(ctx context.Context, filter domain.ProductFilter, page, pageSize int) (*domain.ListProductsResponse, error) {
	products, total, err := s.products.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	resp := &domain.ListProductsResponse{
		Products: make([]domain.ProductResponse, len(products)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for i := range products {
		resp.Products[i] = products[i].ToResponse()
	}
	resp.TotalPages = (total + pageSize - 1) / pageSize
	return resp, nil
}

// GenerateImageUploadURL returns a presigned PUT URL so the client can
// upload the product image directly to object storage.
func (s *catalogServiceImpl) GenerateImageUploadURL(ctx context.Context, seller, contentType string) (*domain.ImagePresignResponse, error) {
	l := log.Ctx(ctx)

	key := fmt.Sprintf("products/%s/%s", seller, uuid.NewString())
	url, err := s.storage.GetUploadURL(ctx, key, contentType, presignExpiry)
	if err != nil {
		l.Error().Err(err).Str(log.FieldAddress, seller).Msg("failed to presign image upload")
		return nil, err
	}

	return &domain.ImagePresignResponse{
		UploadURL: url,
		Key:       key,
		ExpiresIn: int(presignExpiry.Seconds()),
	}, nil
}

func (s *catalogServiceImpl) invalidate(ctx context.Context, id uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cache.BuildKeyByID(id)); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Uint64(log.FieldProductID, id).Msg("product cache invalidation failed")
	}
}
