package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Clement-coder/retrust-marketplace/internal/domain"
	"github.com/Clement-coder/retrust-marketplace/internal/events"
	"github.com/Clement-coder/retrust-marketplace/internal/repository"
	"github.com/Clement-coder/retrust-marketplace/internal/service"
	"github.com/Clement-coder/retrust-marketplace/pkg/database"
	"github.com/Clement-coder/retrust-marketplace/pkg/jwt"
	"github.com/Clement-coder/retrust-marketplace/pkg/middleware"
	"github.com/Clement-coder/retrust-marketplace/pkg/response"
	"github.com/Clement-coder/retrust-marketplace/pkg/storage"
)

const (
	seller = "0x5e11e40000000000000000000000000000000001"
	buyer  = "0xb4be40000000000000000000000000000000002"
)

type routerEnv struct {
	router *gin.Engine
	tokens *jwt.Manager
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	registrySvc := service.NewRegistryService(userRepo, publisher)
	catalogSvc := service.NewCatalogService(productRepo, reputationRepo, nil, 0, store, publisher)
	escrowSvc := service.NewEscrowService(productRepo, escrowRepo, eventRepo, nil, publisher)
	reputationSvc := service.NewReputationService(reputationRepo, balanceRepo)

	tokens := jwt.NewManager("test-secret", time.Hour, "test")
	h := NewHandler(registrySvc, catalogSvc, escrowSvc, reputationSvc, middleware.NewAuthMiddleware(tokens))

	r := gin.New()
	h.RegisterRoutes(r)

	return &routerEnv{router: r, tokens: tokens}
}

func (e *routerEnv) do(t *testing.T, method, path, address string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if address != "" {
		token, err := e.tokens.Generate(address, "")
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *response.ErrorInfo {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	if resp.Error == nil {
		t.Fatalf("expected error body, got %q", w.Body.String())
	}
	return resp.Error
}

// Zero prices and amounts must bind fine and come back with the vault's
// typed code, not a generic binding failure.
func TestZeroAmountsGetTypedCodes(t *testing.T) {
	env := newRouterEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/products", seller, domain.ListProductRequest{
		Name:      "Used Bike",
		Category:  "vehicles",
		Condition: "Good",
		Price:     0,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("list status = %d, want 400", w.Code)
	}
	if e := decodeError(t, w); e.Code != "INVALID_AMOUNT" {
		t.Errorf("list code = %q, want INVALID_AMOUNT", e.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/products", seller, domain.ListProductRequest{
		Name:      "Used Bike",
		Category:  "vehicles",
		Condition: "Good",
		Price:     100,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("list status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var created response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode created product: %v", err)
	}
	var product domain.ProductResponse
	raw, _ := json.Marshal(created.Data)
	if err := json.Unmarshal(raw, &product); err != nil {
		t.Fatalf("failed to decode product data: %v", err)
	}

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/products/%d/buy", product.ID), buyer, domain.BuyRequest{Amount: 0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("buy status = %d, want 400: %s", w.Code, w.Body.String())
	}
	if e := decodeError(t, w); e.Code != "INVALID_AMOUNT" {
		t.Errorf("buy code = %q, want INVALID_AMOUNT", e.Code)
	}
}

func TestRegisterConflictCodes(t *testing.T) {
	env := newRouterEnv(t)

	body := domain.RegisterRequest{
		FullName: "Seller S",
		Username: "seller",
		Email:    "seller@example.com",
		Country:  "DE",
	}

	if w := env.do(t, http.MethodPost, "/api/v1/users/register", seller, body); w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201: %s", w.Code, w.Body.String())
	}

	// Same address, same username: the address collision is reported.
	w := env.do(t, http.MethodPost, "/api/v1/users/register", seller, body)
	if w.Code != http.StatusConflict {
		t.Fatalf("re-register status = %d, want 409", w.Code)
	}
	if e := decodeError(t, w); e.Code != "ALREADY_REGISTERED" {
		t.Errorf("re-register code = %q, want ALREADY_REGISTERED", e.Code)
	}

	// Different address, taken username.
	w = env.do(t, http.MethodPost, "/api/v1/users/register", buyer, body)
	if w.Code != http.StatusConflict {
		t.Fatalf("username conflict status = %d, want 409", w.Code)
	}
	if e := decodeError(t, w); e.Code != "USERNAME_TAKEN" {
		t.Errorf("username conflict code = %q, want USERNAME_TAKEN", e.Code)
	}
}

func TestMutationsRequireIdentity(t *testing.T) {
	env := newRouterEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/products", "", domain.ListProductRequest{
		Name: "x", Category: "c", Condition: "Good", Price: 100,
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated list status = %d, want 401", w.Code)
	}
}
