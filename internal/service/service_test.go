package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Clement-coder/retrust-marketplace/internal/domain"
	"github.com/Clement-coder/retrust-marketplace/internal/events"
	"github.com/Clement-coder/retrust-marketplace/internal/repository"
	"github.com/Clement-coder/retrust-marketplace/pkg/database"
	"github.com/Clement-coder/retrust-marketplace/pkg/storage"
)

const (
	alice = "0xa11ce00000000000000000000000000000000001"
	bob   = "0xb0b0000000000000000000000000000000000002"
	carol = "0xca401000000000000000000000000000000003"
)

type testEnv struct {
	registry   RegistryService
	catalog    CatalogService
	escrow     EscrowService
	reputation ReputationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.New(&database.Config{Driver: "sqlite", FilePath: dsn})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := database.AutoMigrate(db,
		&domain.UserModel{},
		&domain.ProductModel{},
		&domain.EscrowLockModel{},
		&domain.ReputationModel{},
		&domain.BalanceModel{},
		&domain.LedgerEventModel{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}

	publisher := events.NewPublisher(nil)

	userRepo := repository.NewGormUserRepository(db)
	productRepo := repository.NewGormProductRepository(db)
	escrowRepo := repository.NewGormEscrowRepository(db)
	reputationRepo := repository.NewGormReputationRepository(db)
	balanceRepo := repository.NewGormBalanceRepository(db)
	eventRepo := repository.NewGormEventRepository(db)

	return &testEnv{
		registry:   NewRegistryService(userRepo, publisher),
		catalog:    NewCatalogService(productRepo, reputationRepo, nil, 0, store, publisher),
		escrow:     NewEscrowService(productRepo, escrowRepo, eventRepo, nil, publisher),
		reputation: NewReputationService(reputationRepo, balanceRepo),
	}
}

func (e *testEnv) mustList(t *testing.T, seller string, price int64) uint64 {
	t.Helper()
	p, err := e.catalog.ListProduct(context.Background(), seller, &domain.ListProductRequest{
		Name:      "Used Bike",
		Category:  "vehicles",
		Condition: "Good",
		Price:     price,
	})
	if err != nil {
		t.Fatalf("failed to list product: %v", err)
	}
	return p.ID
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.registry.Register(ctx, alice, &domain.RegisterRequest{
		FullName: "Alice A",
		Username: "alice",
		Email:    "alice@example.com",
		Location: "Berlin",
		Country:  "DE",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Address != alice || user.Username != "alice" {
		t.Errorf("unexpected user: %+v", user)
	}

	// Same address again with a fresh username.
	_, err = env.registry.Register(ctx, alice, &domain.RegisterRequest{
		FullName: "Alice Again", Username: "alice2", Email: "a2@example.com", Country: "DE",
	})
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}

	// Same address resubmitting its own username: the address collision
	// wins, not the username one.
	_, err = env.registry.Register(ctx, alice, &domain.RegisterRequest{
		FullName: "Alice A", Username: "alice", Email: "alice@example.com", Country: "DE",
	})
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered for own username, got %v", err)
	}

	// Different address, taken username.
	_, err = env.registry.Register(ctx, bob, &domain.RegisterRequest{
		FullName: "Bob B", Username: "alice", Email: "bob@example.com", Country: "DE",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}

	// Failed registrations must not leave partial state.
	lookup, err := env.registry.Lookup(ctx, bob)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if lookup.Registered {
		t.Error("bob should not be registered after failed attempts")
	}
}

func TestLookupUnknownAddress(t *testing.T) {
	env := newTestEnv(t)

	lookup, err := env.registry.Lookup(context.Background(), carol)
	if err != nil {
		t.Fatalf("lookup must be total, got error: %v", err)
	}
	if lookup.Registered || lookup.User != nil {
		t.Errorf("expected empty lookup, got %+v", lookup)
	}
}

func TestListProductValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     domain.ListProductRequest
		wantErr error
	}{
		{
			name:    "zero price",
			req:     domain.ListProductRequest{Name: "x", Category: "c", Condition: "Good", Price: 0},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative price",
			req:     domain.ListProductRequest{Name: "x", Category: "c", Condition: "Good", Price: -5},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "unknown condition",
			req:     domain.ListProductRequest{Name: "x", Category: "c", Condition: "Mint", Price: 100},
			wantErr: ErrInvalidCondition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.catalog.ListProduct(ctx, alice, &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestListProductSnapshotsReputation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.mustList(t, alice, 100)
	p, err := env.catalog.GetProduct(ctx, id)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if p.Reputation != 0 {
		t.Errorf("expected reputation snapshot 0, got %d", p.Reputation)
	}
	if !p.Listed || p.Sold {
		t.Errorf("new product should be listed and unsold: %+v", p)
	}

	// Sell it and confirm to raise alice's reputation, then list again.
	buyAndConfirm(t, env, id, bob, 100)

	id2 := env.mustList(t, alice, 200)
	p2, err := env.catalog.GetProduct(ctx, id2)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if p2.Reputation != 1 {
		t.Errorf("expected reputation snapshot 1, got %d", p2.Reputation)
	}
	// The earlier product's snapshot must not move.
	p1, _ := env.catalog.GetProduct(ctx, id)
	if p1.Reputation != 0 {
		t.Errorf("old snapshot changed: %d", p1.Reputation)
	}
}

func TestEditProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.mustList(t, alice, 100)
	edit := &domain.EditProductRequest{
		Description: "fresh description",
		Category:    "electronics",
		Condition:   "Fair",
		Price:       250,
	}

	if _, err := env.catalog.EditProduct(ctx, bob, id, edit); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for non-seller, got %v", err)
	}
	if _, err := env.catalog.EditProduct(ctx, alice, 9999, edit); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}

	updated, err := env.catalog.EditProduct(ctx, alice, id, edit)
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if updated.Price != 250 || updated.Condition != domain.ConditionFair {
		t.Errorf("edit not applied: %+v", updated)
	}
	if updated.Name != "Used Bike" {
		t.Errorf("name must be immutable, got %q", updated.Name)
	}

	// Sold products cannot be edited.
	buyAndConfirm(t, env, id, bob, 250)
	if _, err := env.catalog.EditProduct(ctx, alice, id, edit); !errors.Is(err, ErrProductAlreadySold) {
		t.Errorf("expected ErrProductAlreadySold, got %v", err)
	}
}

func TestUnlistProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.mustList(t, alice, 100)

	if err := env.catalog.UnlistProduct(ctx, bob, id); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
	if err := env.catalog.UnlistProduct(ctx, alice, id); err != nil {
		t.Fatalf("unlist failed: %v", err)
	}
	if err := env.catalog.UnlistProduct(ctx, alice, id); !errors.Is(err, ErrProductNotListed) {
		t.Errorf("expected ErrProductNotListed on double unlist, got %v", err)
	}

	// The record survives unlisting.
	p, err := env.catalog.GetProduct(ctx, id)
	if err != nil {
		t.Fatalf("get after unlist failed: %v", err)
	}
	if p.Listed {
		t.Error("product should be unlisted")
	}

	// An unlisted product cannot be bought.
	_, err = env.escrow.Buy(ctx, bob, id, &domain.BuyRequest{Amount: 100})
	if !errors.Is(err, ErrProductNotListed) {
		t.Errorf("expected ErrProductNotListed on buy, got %v", err)
	}
}

func TestBuy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.mustList(t, alice, 100)

	if _, err := env.escrow.Buy(ctx, bob, 9999, &domain.BuyRequest{Amount: 100}); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := env.escrow.Buy(ctx, bob, id, &domain.BuyRequest{Amount: 99}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for underpayment, got %v", err)
	}
	if _, err := env.escrow.Buy(ctx, bob, id, &domain.BuyRequest{Amount: 101}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for overpayment, got %v", err)
	}

	lock, err := env.escrow.Buy(ctx, bob, id, &domain.BuyRequest{Amount: 100})
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if lock.State != domain.LockStateLocked || lock.Buyer != bob || lock.Amount != 100 {
		t.Errorf("unexpected lock: %+v", lock)
	}

	p, _ := env.catalog.GetProduct(ctx, id)
	if !p.Sold {
		t.Error("product should be sold after buy")
	}

	// Second buyer loses.
	if _, err := env.escrow.Buy(ctx, carol, id, &domain.BuyRequest{Amount: 100}); !errors.Is(err, ErrProductAlreadySold) {
		t.Errorf("expected ErrProductAlreadySold, got %v", err)
	}
}

func TestConfirmReceived(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.mustList(t, alice, 500)
	if _, err := env.escrow.Buy(ctx, bob, id, &domain.BuyRequest{Amount: 500}); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	// Only the buyer may confirm.
	if _, err := env.escrow.ConfirmReceived(ctx, alice, id); !errors.Is(err, ErrNotBuyer) {
		t.Errorf("expected ErrNotBuyer for seller, got %v", err)
	}

	lock, err := env.escrow.ConfirmReceived(ctx, bob, id)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if lock.State != domain.LockStateReleased {
		t.Errorf("expected Released lock, got %s", lock.State)
	}
	if lock.ResolvedAt == nil {
		t.Error("resolved lock should carry a resolution time")
	}

	// Seller got the funds and the reputation point.
	bal, _ := env.reputation.GetBalance(ctx, alice)
	if bal.Amount != 500 {
		t.Errorf("expected seller balance 500, got %d", bal.Amount)
	}
	rep, _ := env.reputation.GetReputation(ctx, alice)
	if rep.Score != 1 {
		t.Errorf("expected seller reputation 1, got %d", rep.Score)
	}

	// Resolution is exactly-once: no second confirm, no refund after.
	if _, err := env.escrow.ConfirmReceived(ctx, bob, id); !errors.Is(err, ErrNotLocked) {
		t.Errorf("expected ErrNotLocked on double confirm, got %v", err)
	}
	if _, err := env.escrow.RequestRefund(ctx, bob, id); !errors.Is(err, ErrNotLocked) {
		t.Errorf("expected ErrNotLocked on refund after release, got %v", err)
	}

	// And nothing was double-credited.
	bal, _ = env.reputation.GetBalance(ctx, alice)
	if bal.Amount != 500 {
		t.Errorf("seller balance changed after rejected resolutions: %d", bal.Amount)
	}
}

func TestRequestRefund(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.mustList(t, alice, 300)
	if _, err := env.escrow.RequestRefund(ctx, bob, id); !errors.Is(err, ErrNotLocked) {
		t.Errorf("expected ErrNotLocked before any sale, got %v", err)
	}

	if _, err := env.escrow.Buy(ctx, bob, id, &domain.BuyRequest{Amount: 300}); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	if _, err := env.escrow.RequestRefund(ctx, carol, id); !errors.Is(err, ErrNotBuyer) {
		t.Errorf("expected ErrNotBuyer, got %v", err)
	}

	lock, err := env.escrow.RequestRefund(ctx, bob, id)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if lock.State != domain.LockStateRefunded {
		t.Errorf("expected Refunded lock, got %s", lock.State)
	}

	// Buyer got the funds back; seller reputation untouched.
	bal, _ := env.reputation.GetBalance(ctx, bob)
	if bal.Amount != 300 {
		t.Errorf("expected buyer balance 300, got %d", bal.Amount)
	}
	rep, _ := env.reputation.GetReputation(ctx, alice)
	if rep.Score != 0 {
		t.Errorf("refund must not touch reputation, got %d", rep.Score)
	}

	// No confirm after refund.
	if _, err := env.escrow.ConfirmReceived(ctx, bob, id); !errors.Is(err, ErrNotLocked) {
		t.Errorf("expected ErrNotLocked after refund, got %v", err)
	}
}

func TestEventHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.mustList(t, alice, 100)
	buyAndConfirm(t, env, id, bob, 100)

	evts, err := env.escrow.GetEvents(ctx, id)
	if err != nil {
		t.Fatalf("get events failed: %v", err)
	}

	want := []string{
		domain.EventProductListed,
		domain.EventProductPurchased,
		domain.EventProductDelivered,
		domain.EventReputationUpdated,
	}
	if len(evts) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(evts))
	}
	for i, typ := range want {
		if evts[i].Type != typ {
			t.Errorf("event %d: expected %s, got %s", i, typ, evts[i].Type)
		}
		if i > 0 && evts[i].Seq <= evts[i-1].Seq {
			t.Errorf("event sequence not increasing at %d", i)
		}
	}

	var rep domain.ReputationUpdatedPayload
	if err := evts[3].UnmarshalPayload(&rep); err != nil {
		t.Fatalf("failed to decode reputation payload: %v", err)
	}
	if rep.Seller != alice || rep.NewScore != 1 {
		t.Errorf("unexpected reputation payload: %+v", rep)
	}
}

func TestConcurrentBuysExactlyOneWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.mustList(t, alice, 100)

	const buyers = 16
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buyer := fmt.Sprintf("0x%040d", i)
			_, errs[i] = env.escrow.Buy(ctx, buyer, id, &domain.BuyRequest{Amount: 100})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrProductAlreadySold):
		default:
			t.Errorf("unexpected buy error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one winning buyer, got %d", wins)
	}
}

func TestBrowseProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		env.mustList(t, alice, int64(100+i))
	}
	bobID := env.mustList(t, bob, 50)
	if err := env.catalog.UnlistProduct(ctx, bob, bobID); err != nil {
		t.Fatalf("unlist failed: %v", err)
	}

	all, err := env.catalog.BrowseProducts(ctx, domain.ProductFilter{}, 1, 4)
	if err != nil {
		t.Fatalf("browse failed: %v", err)
	}
	if all.Total != 6 || len(all.Products) != 4 || all.TotalPages != 2 {
		t.Errorf("unexpected page: total=%d len=%d pages=%d", all.Total, len(all.Products), all.TotalPages)
	}

	listed, err := env.catalog.BrowseProducts(ctx, domain.ProductFilter{ListedOnly: true}, 1, 10)
	if err != nil {
		t.Fatalf("browse failed: %v", err)
	}
	if listed.Total != 5 {
		t.Errorf("expected 5 listed products, got %d", listed.Total)
	}

	bobs, err := env.catalog.BrowseProducts(ctx, domain.ProductFilter{Seller: bob}, 1, 10)
	if err != nil {
		t.Fatalf("browse failed: %v", err)
	}
	if bobs.Total != 1 {
		t.Errorf("expected 1 product for bob, got %d", bobs.Total)
	}
}

func TestGetLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.mustList(t, alice, 100)

	if _, err := env.escrow.GetLock(ctx, 9999); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := env.escrow.GetLock(ctx, id); !errors.Is(err, ErrNotLocked) {
		t.Errorf("expected ErrNotLocked before sale, got %v", err)
	}

	if _, err := env.escrow.Buy(ctx, bob, id, &domain.BuyRequest{Amount: 100}); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	lock, err := env.escrow.GetLock(ctx, id)
	if err != nil {
		t.Fatalf("get lock failed: %v", err)
	}
	if lock.State != domain.LockStateLocked {
		t.Errorf("expected Locked, got %s", lock.State)
	}
}

func buyAndConfirm(t *testing.T, env *testEnv, id uint64, buyer string, amount int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := env.escrow.Buy(ctx, buyer, id, &domain.BuyRequest{Amount: amount}); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, err := env.escrow.ConfirmReceived(ctx, buyer, id); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
}
