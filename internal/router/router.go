// internal/router/router.go
package router

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secondhand/marketplace-backend/internal/config"
	"github.com/secondhand/marketplace-backend/internal/handlers"
	"github.com/secondhand/marketplace-backend/internal/middleware"
	"github.com/secondhand/marketplace-backend/internal/repository"
	"github.com/secondhand/marketplace-backend/internal/services"
	"github.com/secondhand/marketplace-backend/internal/utils"
)

// Initialize wires services and handlers over store and rebuilds the
// in-process indexes from it. search may be nil to disable full-text feed
// queries.
func Initialize(ctx context.Context, cfg *config.Config, store *repository.Store, search *services.SearchService) (*gin.Engine, error) {
	// Initialize services
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	fingerprints := services.NewFingerprintIndex(cfg.Marketplace.SimilarityThreshold)
	verificationService := services.NewVerificationService(fingerprints)
	blockchainService := services.NewBlockchainService(store.Ledger, store.Products)
	nanoTagService := services.NewNanoTagService(store.Products, cfg.Marketplace.TagVerifyBaseURL)
	paymentService := services.NewPaymentService(cfg)

	authService := services.NewAuthService(store.Users, cfg)
	userService := services.NewUserService(store.Users)
	productService := services.NewProductService(
		store.Products,
		userService,
		blockchainService,
		verificationService,
		nanoTagService,
		storageService,
		paymentService,
		search,
		cfg,
	)

	if err := productService.RebuildIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to rebuild indexes: %w", err)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService, productService)
	productHandler := handlers.NewProductHandler(productService, storageService)
	blockchainHandler := handlers.NewBlockchainHandler(blockchainService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	limits := middleware.NewRateLimits(cfg.RateLimit.Enabled)

	r := gin.New()
	r.MaxMultipartMemory = cfg.Upload.MaxFileSize * int64(cfg.Upload.MaxFiles+1)

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(limits.General())

	r.NoRoute(func(c *gin.Context) {
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", "Endpoint not found", nil)
	})

	api := r.Group("/api")
	{
		api.GET("/health", handlers.Health)

		// Authentication routes
		auth := api.Group("/auth")
		auth.Use(limits.Auth())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
		}

		// Product routes
		products := api.Group("/products")
		{
			products.POST("/list", limits.Upload(), middleware.OptionalAuth(), productHandler.CreateProduct)
			products.POST("/activate/:product_id", middleware.OptionalAuth(), productHandler.ActivateProduct)
			products.GET("/feed", productHandler.GetFeed)
			products.GET("/verify/:product_id", productHandler.VerifyProduct)
			products.GET("/history/:product_id", productHandler.GetHistory)
			products.GET("/:product_id", productHandler.GetProduct)

			// Authenticated routes
			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("/transfer/:product_id", productHandler.TransferProduct)
				protected.DELETE("/:product_id", productHandler.DeleteProduct)
			}
		}

		// Ledger routes (public)
		blockchain := api.Group("/blockchain")
		{
			blockchain.GET("/validate", blockchainHandler.Validate)
		}

		// User routes
		user := api.Group("/user")
		user.Use(middleware.AuthRequired())
		{
			user.GET("/profile", userHandler.GetProfile)
			user.PUT("/profile", userHandler.UpdateProfile)
			user.GET("/listings", userHandler.GetListings)
		}
	}

	// Uploaded images when they are kept on local disk
	if !cfg.UsesS3() {
		r.Static("/uploads", cfg.Upload.Dir)
	}

	return r, nil
}
