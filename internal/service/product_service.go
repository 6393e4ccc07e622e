package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"storefront/internal/config"
	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/store"
)

// DefaultCountryAvailability is used when a new product names no countries.
var DefaultCountryAvailability = []string{"IN", "UK", "CA", "US"}

// ValidateProduct checks a product before it is written.
func ValidateProduct(p *model.Product) error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperrors.Validation("Invalid product: " + strings.ToLower(verrs[0].Field()) + " failed " + verrs[0].Tag())
		}
		return apperrors.Validation("Invalid product")
	}
	if !p.PriceUSD.IsPositive() {
		return apperrors.Validation("Invalid product: price_in_usd must be positive")
	}
	for _, price := range []decimal.Decimal{p.PriceINR, p.PriceGBP, p.PriceCAD} {
		if price.IsNegative() {
			return apperrors.Validation("Invalid product: prices must not be negative")
		}
	}
	return nil
}

// CreateProductInput carries the admin create payload. Nil fields take defaults.
type CreateProductInput struct {
	Title               string
	Description         string
	PriceUSD            *decimal.Decimal
	PriceINR            *decimal.Decimal
	PriceGBP            *decimal.Decimal
	PriceCAD            *decimal.Decimal
	Images              []string
	Videos              []string
	Sizes               []string
	Stock               *int
	CountryAvailability []string
}

// ProductService handles catalog operations.
type ProductService interface {
	List(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id string) (*model.Product, error)
	Create(ctx context.Context, in CreateProductInput) (*model.Product, error)
	Update(ctx context.Context, id string, patch store.Patch) (*model.Product, error)
	Delete(ctx context.Context, id string) error
}

type productService struct {
	products repository.ProductRepository
	rates    config.Rates
}

// NewProductService creates a new product service.
func NewProductService(products repository.ProductRepository, rates config.Rates) ProductService {
	return &productService{products: products, rates: rates}
}

func (s *productService) List(ctx context.Context) ([]model.Product, error) {
	return s.products.List(ctx)
}

func (s *productService) Get(ctx context.Context, id string) (*model.Product, error) {
	return s.products.FindByID(ctx, id)
}

// Create fills defaults, derives omitted prices from the USD price and stores
// the product. Derived prices are not recomputed later.
func (s *productService) Create(ctx context.Context, in CreateProductInput) (*model.Product, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" ||
		in.PriceUSD == nil || !in.PriceUSD.IsPositive() || len(in.Sizes) == 0 {
		return nil, apperrors.Validation("Missing required fields")
	}

	usd := *in.PriceUSD
	p := &model.Product{
		Title:               in.Title,
		Description:         in.Description,
		PriceUSD:            usd,
		PriceINR:            s.price(in.PriceINR, usd, s.rates.INR),
		PriceGBP:            s.price(in.PriceGBP, usd, s.rates.GBP),
		PriceCAD:            s.price(in.PriceCAD, usd, s.rates.CAD),
		Images:              orEmpty(in.Images),
		Videos:              orEmpty(in.Videos),
		Sizes:               in.Sizes,
		CountryAvailability: in.CountryAvailability,
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if len(p.CountryAvailability) == 0 {
		p.CountryAvailability = append([]string(nil), DefaultCountryAvailability...)
	}
	if err := ValidateProduct(p); err != nil {
		return nil, err
	}
	return s.products.Create(ctx, p)
}

func (s *productService) Update(ctx context.Context, id string, patch store.Patch) (*model.Product, error) {
	if len(patch) == 0 {
		return nil, apperrors.Validation("Invalid payload")
	}
	return s.products.Update(ctx, id, patch)
}

func (s *productService) Delete(ctx context.Context, id string) error {
	return s.products.Delete(ctx, id)
}

// price returns given when it is set and non-zero, else usd converted at rate
// and rounded to whole units.
func (s *productService) price(given *decimal.Decimal, usd, rate decimal.Decimal) decimal.Decimal {
	if given != nil && !given.IsZero() {
		return *given
	}
	return usd.Mul(rate).Round(0)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
