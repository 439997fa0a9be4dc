package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/Clement-coder/retrust-marketplace/internal/audit"
	"github.com/Clement-coder/retrust-marketplace/internal/cache"
	"github.com/Clement-coder/retrust-marketplace/internal/domain"
	"github.com/Clement-coder/retrust-marketplace/internal/events"
	"github.com/Clement-coder/retrust-marketplace/internal/keylock"
	"github.com/Clement-coder/retrust-marketplace/internal/repository"
	"github.com/Clement-coder/retrust-marketplace/pkg/log"
)

// escrowServiceImpl implements EscrowService.
//
// Every mutation takes the product's keyed mutex before its
// read-check-write sequence, so two operations on the same product never
// interleave in-process. The repository's conditional updates backstop
// the same guarantee across processes.
type escrowServiceImpl struct {
	products  repository.ProductRepository
	escrow    repository.EscrowRepository
	events    repository.EventRepository
	cache     cache.ProductCache
	publisher *events.Publisher
	locks     *keylock.KeyedMutex
}

// NewEscrowService creates a new escrow service.
func NewEscrowService(products repository.ProductRepository, escrow repository.EscrowRepository,
	eventRepo repository.EventRepository, productCache cache.ProductCache, publisher *events.Publisher) EscrowService {
	return &escrowServiceImpl{
		products:  products,
		escrow:    escrow,
		events:    eventRepo,
		cache:     productCache,
		publisher: publisher,
		locks:     keylock.New(),
	}
}

// Buy locks the buyer's funds against the product. At most one buyer
// ever succeeds per product id.
func (s *escrowServiceImpl) Buy(ctx context.Context, buyer string, productID uint64, req *domain.BuyRequest) (*domain.EscrowLockResponse, error) {
	l := log.Ctx(ctx)

	s.locks.Lock(productID)
	defer s.locks.Unlock(productID)

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if !product.Listed {
		return nil, ErrProductNotListed
	}
	if product.Sold {
		return nil, ErrProductAlreadySold
	}
	if req.Amount != product.Price {
		return nil, ErrInvalidAmount
	}

	evt, err := domain.NewLedgerEvent(domain.EventProductPurchased, &productID, buyer, domain.ProductPurchasedPayload{
		ID:    productID,
		Buyer: buyer,
		Price: req.Amount,
	})
	if err != nil {
		return nil, err
	}

	if err := s.escrow.Purchase(ctx, productID, buyer, req.Amount, evt); err != nil {
		if errors.Is(err, repository.ErrProductUnavailable) {
			return nil, ErrProductAlreadySold
		}
		l.Error().Err(err).Uint64(log.FieldProductID, productID).Msg("failed to purchase product")
		return nil, err
	}

	s.invalidate(ctx, productID)
	s.publisher.Publish(ctx, evt)
	audit.LogWithDetail(ctx, audit.ActionBuyProduct, buyer, strconv.FormatUint(productID, 10), "product purchased")

	return s.lockResponse(ctx, productID)
}

// ConfirmReceived releases the locked funds to the seller and credits
// the seller's reputation. Only the lock's buyer may confirm, and only
// once; this is the only path that increases reputation.
func (s *escrowServiceImpl) ConfirmReceived(ctx context.Context, caller string, productID uint64) (*domain.EscrowLockResponse, error) {
	l := log.Ctx(ctx)

	s.locks.Lock(productID)
	defer s.locks.Unlock(productID)

	product, lock, err := s.activeLock(ctx, caller, productID)
	if err != nil {
		return nil, err
	}

	delivered, err := domain.NewLedgerEvent(domain.EventProductDelivered, &productID, caller, domain.ProductDeliveredPayload{ID: productID})
	if err != nil {
		return nil, err
	}

	seller := product.Seller
	newScore, err := s.escrow.Release(ctx, productID, seller, lock.Amount, delivered,
		func(score int64) (*domain.LedgerEvent, error) {
			return domain.NewLedgerEvent(domain.EventReputationUpdated, &productID, seller, domain.ReputationUpdatedPayload{
				Seller:   seller,
				NewScore: score,
			})
		})
	if err != nil {
		if errors.Is(err, repository.ErrLockNotActive) {
			return nil, ErrNotLocked
		}
		l.Error().Err(err).Uint64(log.FieldProductID, productID).Msg("failed to release escrow")
		return nil, err
	}

	s.publisher.Publish(ctx, delivered)
	audit.LogWithDetail(ctx, audit.ActionConfirmReceipt, caller, strconv.FormatUint(productID, 10), "delivery confirmed")
	l.Info().
		Str(log.FieldAddress, seller).
		Int64("new_score", newScore).
		Uint64(log.FieldProductID, productID).
		Msg("seller reputation incremented")

	return s.lockResponse(ctx, productID)
}

// RequestRefund returns the locked funds to the buyer. Refunds are
// buyer-initiated only and leave reputation untouched.
func (s *escrowServiceImpl) RequestRefund(ctx context.Context, caller string, productID uint64) (*domain.EscrowLockResponse, error) {
	l := log.Ctx(ctx)

	s.locks.Lock(productID)
	defer s.locks.Unlock(productID)

	_, lock, err := s.activeLock(ctx, caller, productID)
	if err != nil {
		return nil, err
	}

	evt, err := domain.NewLedgerEvent(domain.EventProductRefunded, &productID, caller, domain.ProductRefundedPayload{ID: productID})
	if err != nil {
		return nil, err
	}

	if err := s.escrow.Refund(ctx, productID, lock.Buyer, lock.Amount, evt); err != nil {
		if errors.Is(err, repository.ErrLockNotActive) {
			return nil, ErrNotLocked
		}
		l.Error().Err(err).Uint64(log.FieldProductID, productID).Msg("failed to refund escrow")
		return nil, err
	}

	s.publisher.Publish(ctx, evt)
	audit.LogWithDetail(ctx, audit.ActionRequestRefund, caller, strconv.FormatUint(productID, 10), "escrow refunded")

	return s.lockResponse(ctx, productID)
}

// GetLock reads the escrow lock for a product, terminal states included.
func (s *escrowServiceImpl) GetLock(ctx context.Context, productID uint64) (*domain.EscrowLockResponse, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	lock, err := s.escrow.GetLock(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrLockNotFound) {
			return nil, ErrNotLocked
		}
		return nil, err
	}

	resp := lock.ToResponse()
	return &resp, nil
}

// GetEvents replays a product's full ledger history in append order.
func (s *escrowServiceImpl) GetEvents(ctx context.Context, productID uint64) ([]domain.LedgerEvent, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return s.events.ListByProduct(ctx, productID)
}

// activeLock loads the product and its Locked lock, enforcing that the
// caller is the lock's buyer.
func (s *escrowServiceImpl) activeLock(ctx context.Context, caller string, productID uint64) (*domain.Product, *domain.EscrowLock, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, nil, ErrProductNotFound
		}
		return nil, nil, err
	}

	lock, err := s.escrow.GetLock(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrLockNotFound) {
			return nil, nil, ErrNotLocked
		}
		return nil, nil, err
	}
	if lock.State != domain.LockStateLocked {
		return nil, nil, ErrNotLocked
	}
	if lock.Buyer != caller {
		return nil, nil, ErrNotBuyer
	}

	return product, lock, nil
}

func (s *escrowServiceImpl) lockResponse(ctx context.Context, productID uint64) (*domain.EscrowLockResponse, error) {
	lock, err := s.escrow.GetLock(ctx, productID)
	if err != nil {
		return nil, err
	}
	resp := lock.ToResponse()
	return &resp, nil
}

func (s *escrowServiceImpl) invalidate(ctx context.Context, productID uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cache.BuildKeyByID(productID)); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Uint64(log.FieldProductID, productID).Msg("product cache invalidation failed")
	}
}
