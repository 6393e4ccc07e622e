package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/service"
)

// CountryHandler serves country and state reference data.
type CountryHandler struct {
	countryService service.CountryService
}

// NewCountryHandler creates a new country handler.
func NewCountryHandler(countryService service.CountryService) *CountryHandler {
	return &CountryHandler{countryService: countryService}
}

// List godoc
// @Summary List countries with their states
// @Tags countries
// @Produce json
// @Success 200 {object} model.Countries
// @Failure 500 {object} errors.ErrorResponse
// @Router /countries [get]
func (h *CountryHandler) List(c echo.Context) error {
	countries, err := h.countryService.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countries)
}
