package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/Clement-coder/retrust-marketplace/internal/cache"
	"github.com/Clement-coder/retrust-marketplace/internal/config"
	"github.com/Clement-coder/retrust-marketplace/internal/domain"
	"github.com/Clement-coder/retrust-marketplace/internal/events"
	"github.com/Clement-coder/retrust-marketplace/internal/handler"
	"github.com/Clement-coder/retrust-marketplace/internal/repository"
	"github.com/Clement-coder/retrust-marketplace/internal/service"
	"github.com/Clement-coder/retrust-marketplace/pkg/database"
	"github.com/Clement-coder/retrust-marketplace/pkg/jwt"
	"github.com/Clement-coder/retrust-marketplace/pkg/log"
	"github.com/Clement-coder/retrust-marketplace/pkg/middleware"
	"github.com/Clement-coder/retrust-marketplace/pkg/pubsub"
	"github.com/Clement-coder/retrust-marketplace/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "retrust-ledger",
	})
	logger := log.L()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("auth.jwt_secret must be configured")
	}

	// Database
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.AutoMigrate(db,
		&domain.UserModel{},
		&domain.ProductModel{},
		&domain.EscrowLockModel{},
		&domain.ReputationModel{},
		&domain.BalanceModel{},
		&domain.LedgerEventModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	// Event bus
	bus, err := pubsub.NewPubSub(cfg.Events)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create event bus")
	}
	defer bus.Close()
	publisher := events.NewPublisher(bus)

	// Product cache
	var productCache cache.ProductCache
	if cfg.Cache.Enabled {
		productCache, err = cache.NewRedisProductCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis cache")
		}
		defer productCache.Close()
	}

	// Image storage
	store, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create image storage")
	}

	// Repositories
	userRepo := repository.NewGormUserRepository(db)
	productRepo := repository.NewGormProductRepository(db)
	escrowRepo := repository.NewGormEscrowRepository(db)
	reputationRepo := repository.NewGormReputationRepository(db)
	balanceRepo := repository.NewGormBalanceRepository(db)
	eventRepo := repository.NewGormEventRepository(db)

	// Services
	registrySvc := service.NewRegistryService(userRepo, publisher)
	catalogSvc := service.NewCatalogService(productRepo, reputationRepo, productCache, cfg.Cache.TTL, store, publisher)
	escrowSvc := service.NewEscrowService(productRepo, escrowRepo, eventRepo, productCache, publisher)
	reputationSvc := service.NewReputationService(reputationRepo, balanceRepo)

	// HTTP
	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration, cfg.Auth.Issuer)
	authMiddleware := middleware.NewAuthMiddleware(tokens)
	httpHandler := handler.NewHandler(registrySvc, catalogSvc, escrowSvc, reputationSvc, authMiddleware)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.GinMiddleware(logger))
	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info().Str("addr", addr).Msg("marketplace ledger starting")
	if err := r.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
