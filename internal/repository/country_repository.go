package repository

import (
	"context"

	"storefront/internal/model"
)

// CountryDocument is the storage the country repository reads from.
type CountryDocument interface {
	Read(ctx context.Context) (model.Countries, error)
}

// CountryRepository exposes the country/state reference data.
type CountryRepository interface {
	All(ctx context.Context) (model.Countries, error)
}

type countryRepository struct {
	doc CountryDocument
}

// NewCountryRepository builds a repository over the countries document.
func NewCountryRepository(doc CountryDocument) CountryRepository {
	return &countryRepository{doc: doc}
}

func (r *countryRepository) All(ctx context.Context) (model.Countries, error) {
	return r.doc.Read(ctx)
}
