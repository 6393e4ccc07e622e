package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logger"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/service"
)

//go:embed countries_states.json
var countriesJSON []byte

func main() {
	adminEmail := flag.String("admin-email", envOr("SEED_ADMIN_EMAIL", "admin@example.com"), "email of the admin account to create")
	adminPassword := flag.String("admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "password of the admin account (required to create it)")
	withProducts := flag.Bool("products", true, "add sample products when the catalog is empty")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx := context.Background()

	stores, err := db.Open(cfg, zl, service.ValidateProduct)
	if err != nil {
		zl.Fatal("open stores", zap.Error(err))
	}
	defer func() { _ = stores.Close() }()

	if err := stores.Ensure(ctx); err != nil {
		zl.Fatal("prepare collections", zap.Error(err))
	}

	if err := seedCountries(ctx, stores); err != nil {
		zl.Fatal("seed countries", zap.Error(err))
	}
	zl.Info("countries written", zap.String("collection", db.CountriesCollection))

	if *adminPassword != "" {
		hasher, err := auth.NewPasswordHasher(cfg.BcryptCost)
		if err != nil {
			zl.Fatal("password hasher", zap.Error(err))
		}
		user, err := seedAdmin(ctx, repository.NewUserRepository(stores.Users), hasher, *adminEmail, *adminPassword)
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			zl.Info("admin already exists", zap.String("email", *adminEmail))
		case err != nil:
			zl.Fatal("seed admin", zap.Error(err))
		default:
			zl.Info("admin created", zap.String("id", user.ID), zap.String("email", user.Email))
		}
	} else {
		zl.Info("no admin password given, skipping admin account")
	}

	if *withProducts {
		products := service.NewProductService(repository.NewProductRepository(stores.Products), cfg.Rates)
		n, err := seedProducts(ctx, products)
		if err != nil {
			zl.Fatal("seed products", zap.Error(err))
		}
		zl.Info("products seeded", zap.Int("count", n))
	}
}

func seedCountries(ctx context.Context, stores *db.Stores) error {
	var countries model.Countries
	if err := json.Unmarshal(countriesJSON, &countries); err != nil {
		return err
	}
	return stores.Countries.Write(ctx, countries)
}

func seedAdmin(ctx context.Context, users repository.UserRepository, hasher *auth.PasswordHasher, email, password string) (*model.User, error) {
	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	return users.Create(ctx, &model.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: &hash,
		Role:         model.RoleAdmin,
	})
}

func seedProducts(ctx context.Context, products service.ProductService) (int, error) {
	existing, err := products.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	samples := []service.CreateProductInput{
		{
			Title:       "Classic Navy Suit",
			Description: "Two-piece wool blend suit with a slim fit.",
			PriceUSD:    price("299"),
			Sizes:       []string{"S", "M", "L", "XL"},
			Stock:       intPtr(25),
		},
		{
			Title:       "Charcoal Three-Piece Suit",
			Description: "Three-piece suit with waistcoat in charcoal twill.",
			PriceUSD:    price("399"),
			Sizes:       []string{"M", "L", "XL"},
			Stock:       intPtr(10),
		},
		{
			Title:               "Linen Summer Blazer",
			Description:         "Unlined linen blazer for warm weather.",
			PriceUSD:            price("149"),
			PriceINR:            price("11999"),
			Sizes:               []string{"S", "M", "L"},
			Stock:               intPtr(40),
			CountryAvailability: []string{"IN", "US"},
		},
	}

	for _, in := range samples {
		if _, err := products.Create(ctx, in); err != nil {
			return 0, err
		}
	}
	return len(samples), nil
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(n int) *int { return &n }

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
