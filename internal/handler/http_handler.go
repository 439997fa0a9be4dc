package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Clement-coder/retrust-marketplace/internal/domain"
	"github.com/Clement-coder/retrust-marketplace/internal/service"
	"github.com/Clement-coder/retrust-marketplace/pkg/log"
	"github.com/Clement-coder/retrust-marketplace/pkg/middleware"
	"github.com/Clement-coder/retrust-marketplace/pkg/response"
)

// Handler handles HTTP requests for the marketplace ledger.
type Handler struct {
	registry       service.RegistryService
	catalog        service.CatalogService
	escrow         service.EscrowService
	reputation     service.ReputationService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(registry service.RegistryService, catalog service.CatalogService,
	escrow service.EscrowService, reputation service.ReputationService,
	authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		registry:       registry,
		catalog:        catalog,
		escrow:         escrow,
		reputation:     reputation,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes. Reads are public; mutations
// require a verified caller identity.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("/register", h.authMiddleware.RequireCaller(), h.Register)
			users.GET("/:address", h.GetUser)
			users.GET("/:address/reputation", h.GetReputation)
			users.GET("/:address/balance", h.GetBalance)
		}

		products := api.Group("/products")
		{
			products.GET("", h.BrowseProducts)
			products.GET("/:id", h.GetProduct)
			products.GET("/:id/escrow", h.GetLock)
			products.GET("/:id/events", h.GetEvents)

			authed := products.Group("")
			authed.Use(h.authMiddleware.RequireCaller())
			{
				authed.POST("", h.ListProduct)
				authed.PUT("/:id", h.EditProduct)
				authed.DELETE("/:id", h.UnlistProduct)
				authed.POST("/:id/buy", h.Buy)
				authed.POST("/:id/confirm", h.ConfirmReceived)
				authed.POST("/:id/refund", h.RequestRefund)
				authed.POST("/image/presign", h.PresignImage)
			}
		}
	}
}

// Health handles liveness checks.
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// Register handles user registration for the verified caller address.
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid register request")
		response.BadRequest(c, err.Error())
		return
	}

	caller := middleware.GetCallerAddress(c)
	result, err := h.registry.Register(ctx, caller, &req)
	if err != nil {
		h.handleServiceError(c, err, "failed to register user")
		return
	}

	response.Created(c, result)
}

// GetUser handles registry lookups. Unknown addresses return a normal
// "not registered" body, not a 404.
func (h *Handler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()

	result, err := h.registry.Lookup(ctx, c.Param("address"))
	if err != nil {
		h.handleServiceError(c, err, "failed to look up user")
		return
	}

	response.Success(c, result)
}

// GetReputation handles reputation reads.
func (h *Handler) GetReputation(c *gin.Context) {
	ctx := c.Request.Context()

	result, err := h.reputation.GetReputation(ctx, c.Param("address"))
	if err != nil {
		h.handleServiceError(c, err, "failed to read reputation")
		return
	}

	response.Success(c, result)
}

// GetBalance handles balance reads.
func (h *Handler) GetBalance(c *gin.Context) {
	ctx := c.Request.Context()

	result, err := h.reputation.GetBalance(ctx, c.Param("address"))
	if err != nil {
		h.handleServiceError(c, err, "failed to read balance")
		return
	}

	response.Success(c, result)
}

// ListProduct handles new listings.
func (h *Handler) ListProduct(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.ListProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid list product request")
		response.BadRequest(c, err.Error())
		return
	}

	caller := middleware.GetCallerAddress(c)
	result, err := h.catalog.ListProduct(ctx, caller, &req)
	if err != nil {
		h.handleServiceError(c, err, "failed to list product")
		return
	}

	response.Created(c, result)
}

// BrowseProducts handles paginated catalog browsing.
func (h *Handler) BrowseProducts(c *gin.Context) {
	ctx := c.Request.Context()

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	filter := domain.ProductFilter{
		Category:   c.Query("category"),
		Seller:     c.Query("seller"),
		ListedOnly: c.DefaultQuery("listed_only", "false") == "true",
	}

	result, err := h.catalog.BrowseProducts(ctx, filter, page, pageSize)
	if err != nil {
		h.handleServiceError(c, err, "failed to browse products")
		return
	}

	response.Success(c, result)
}

// GetProduct handles single product reads.
func (h *Handler) GetProduct(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.productID(c)
	if !ok {
		return
	}

	result, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		h.handleServiceError(c, err, "failed to get product")
		return
	}

	response.Success(c, result)
}

// EditProduct handles edits to the caller's unsold product.
func (h *Handler) EditProduct(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	id, ok := h.productID(c)
	if !ok {
		return
	}

	var req domain.EditProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid edit product request")
		response.BadRequest(c, err.Error())
		return
	}

	caller := middleware.GetCallerAddress(c)
	result, err := h.catalog.EditProduct(ctx, caller, id, &req)
	if err != nil {
		h.handleServiceError(c, err, "failed to edit product")
		return
	}

	response.Success(c, result)
}

// UnlistProduct handles withdrawing a listing from sale.
func (h *Handler) UnlistProduct(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.productID(c)
	if !ok {
		return
	}

	caller := middleware.GetCallerAddress(c)
	if err := h.catalog.UnlistProduct(ctx, caller, id); err != nil {
		h.handleServiceError(c, err, "failed to unlist product")
		return
	}

	response.Success(c, gin.H{"id": id, "listed": false})
}

// Buy handles purchases. The body carries the value sent; it must equal
// the product price exactly.
func (h *Handler) Buy(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	id, ok := h.productID(c)
	if !ok {
		return
	}

	var req domain.BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid buy request")
		response.BadRequest(c, err.Error())
		return
	}

	caller := middleware.GetCallerAddress(c)
	result, err := h.escrow.Buy(ctx, caller, id, &req)
	if err != nil {
		h.handleServiceError(c, err, "failed to buy product")
		return
	}

	response.Created(c, result)
}

// ConfirmReceived handles buyer delivery confirmation.
func (h *Handler) ConfirmReceived(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.productID(c)
	if !ok {
		return
	}

	caller := middleware.GetCallerAddress(c)
	result, err := h.escrow.ConfirmReceived(ctx, caller, id)
	if err != nil {
		h.handleServiceError(c, err, "failed to confirm receipt")
		return
	}

	response.Success(c, result)
}

// RequestRefund handles buyer-initiated refunds.
func (h *Handler) RequestRefund(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.productID(c)
	if !ok {
		return
	}

	caller := middleware.GetCallerAddress(c)
	result, err := h.escrow.RequestRefund(ctx, caller, id)
	if err != nil {
		h.handleServiceError(c, err, "failed to refund escrow")
		return
	}

	response.Success(c, result)
}

// GetLock handles escrow lock reads.
func (h *Handler) GetLock(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.productID(c)
	if !ok {
		return
	}

	result, err := h.escrow.GetLock(ctx, id)
	if err != nil {
		h.handleServiceError(c, err, "failed to get escrow lock")
		return
	}

	response.Success(c, result)
}

// GetEvents handles product history replays.
func (h *Handler) GetEvents(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := h.productID(c)
	if !ok {
		return
	}

	result, err := h.escrow.GetEvents(ctx, id)
	if err != nil {
		h.handleServiceError(c, err, "failed to get product events")
		return
	}

	response.Success(c, result)
}

// PresignImage handles presigned image upload URL generation.
func (h *Handler) PresignImage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.ImagePresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid presign request")
		response.BadRequest(c, err.Error())
		return
	}

	caller := middleware.GetCallerAddress(c)
	result, err := h.catalog.GenerateImageUploadURL(ctx, caller, req.ContentType)
	if err != nil {
		h.handleServiceError(c, err, "failed to presign image upload")
		return
	}

	response.Success(c, result)
}

func (h *Handler) productID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid product id")
		return 0, false
	}
	return id, true
}

// handleServiceError maps typed business errors onto the HTTP contract:
// validation 400, authorization 403, not-found 404, state conflicts 409.
// Anything untyped fails closed as a 500.
func (h *Handler) handleServiceError(c *gin.Context, err error, fallback string) {
	code := service.Code(err)

	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidCondition):
		response.BadRequestCode(c, code, err.Error())
	case errors.Is(err, service.ErrNotAuthorized),
		errors.Is(err, service.ErrNotBuyer):
		response.ForbiddenCode(c, code, err.Error())
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFoundCode(c, code, err.Error())
	case errors.Is(err, service.ErrProductAlreadySold),
		errors.Is(err, service.ErrProductNotListed),
		errors.Is(err, service.ErrNotLocked),
		errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrUsernameTaken):
		response.ConflictCode(c, code, err.Error())
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(fallback)
		response.InternalError(c, fallback)
	}
}
