package service

import (
	"context"

	"storefront/internal/model"
	"storefront/internal/repository"
)

// CountryService serves country and state reference data.
type CountryService interface {
	List(ctx context.Context) (model.Countries, error)
}

type countryService struct {
	countries repository.CountryRepository
}

// NewCountryService creates a new country service.
func NewCountryService(countries repository.CountryRepository) CountryService {
	return &countryService{countries: countries}
}

func (s *countryService) List(ctx context.Context) (model.Countries, error) {
	return s.countries.All(ctx)
}
