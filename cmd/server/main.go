package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "storefront/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/gate"
	"storefront/internal/handler"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
)

// @title Storefront API
// @version 1.0
// @description Storefront catalog API with cookie-based JWT sessions and admin product management.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey CookieAuth
// @in header
// @name Cookie
// @description auth-token cookie set by /auth/login
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := db.Open(cfg, zl, service.ValidateProduct)
	if err != nil {
		zl.Fatal("open stores", zap.Error(err))
	}
	defer func() { _ = stores.Close() }()

	if err := stores.Ensure(ctx); err != nil {
		zl.Fatal("prepare collections", zap.Error(err))
	}
	if ok, err := stores.Countries.Exists(ctx); err == nil && !ok {
		zl.Warn("countries data missing, run cmd/seed", zap.String("collection", db.CountriesCollection))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(stores.Users)
	productRepo := repository.NewProductRepository(stores.Products)
	countryRepo := repository.NewCountryRepository(stores.Countries)

	// Initialize auth components
	jwtService, err := auth.NewJWTService(cfg.JWTSecret, auth.WithLogger(zl))
	if err != nil {
		zl.Fatal("jwt service", zap.Error(err))
	}
	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		zl.Fatal("password hasher", zap.Error(err))
	}
	assertions := auth.NewAssertionVerifier(cfg.FederatedSecret)

	// Initialize services
	identity := service.NewIdentityResolver(userRepo, hasher, zl)
	authService := service.NewAuthService(userRepo, identity, hasher, jwtService, assertions)
	productService := service.NewProductService(productRepo, cfg.Rates)
	countryService := service.NewCountryService(countryRepo)

	limiter := middleware.NewRateLimiter(cfg.LoginRatePerSec, cfg.LoginRateBurst, zl)
	limiter.StartCleanup(10*time.Minute, ctx.Done())

	e := echo.New()
	router.Register(e, cfg, zl, gate.New(gate.DefaultRules(), jwtService), limiter, router.Handlers{
		Auth:     handler.NewAuthHandler(authService, cfg.IsProduction()),
		Products: handler.NewProductHandler(productService),
		Country:  handler.NewCountryHandler(countryService),
	})

	zl.Info("swagger documentation available", zap.String("url", swaggerURL(cfg)))

	go func() {
		addr := ":" + cfg.ServerPort
		zl.Info("starting server", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
