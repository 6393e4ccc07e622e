package repository

import (
	"context"

	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/store"
)

// ErrProductNotFound is returned when no product matches.
var ErrProductNotFound = apperrors.NotFound("Product not found")

// ProductRepository defines catalog persistence operations.
type ProductRepository interface {
	List(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id string) (*model.Product, error)
	Create(ctx context.Context, product *model.Product) (*model.Product, error)
	Update(ctx context.Context, id string, patch store.Patch) (*model.Product, error)
	Delete(ctx context.Context, id string) error
}

type productRepository struct {
	products store.Collection[model.Product]
}

// NewProductRepository builds a repository over the products collection.
func NewProductRepository(products store.Collection[model.Product]) ProductRepository {
	return &productRepository{products: products}
}

func (r *productRepository) List(ctx context.Context) ([]model.Product, error) {
	return r.products.List(ctx)
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	product, found, err := r.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	created, err := r.products.Insert(ctx, *product)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *productRepository) Update(ctx context.Context, id string, patch store.Patch) (*model.Product, error) {
	updated, found, err := r.products.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrProductNotFound
	}
	return &updated, nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	removed, err := r.products.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrProductNotFound
	}
	return nil
}
