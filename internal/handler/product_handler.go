package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	apperrors "storefront/internal/errors"
	"storefront/internal/service"
	"storefront/internal/store"
)

// ProductHandler serves the catalog, publicly and to admins.
type ProductHandler struct {
	productService service.ProductService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// CreateProductRequest is the admin create payload. Omitted non-USD prices
// are derived from price_in_usd.
type CreateProductRequest struct {
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	PriceUSD            *decimal.Decimal `json:"price_in_usd" swaggertype:"number"`
	PriceINR            *decimal.Decimal `json:"price_in_inr" swaggertype:"number"`
	PriceGBP            *decimal.Decimal `json:"price_in_gbp" swaggertype:"number"`
	PriceCAD            *decimal.Decimal `json:"price_in_cad" swaggertype:"number"`
	Images              []string         `json:"images"`
	Videos              []string         `json:"videos"`
	Sizes               []string         `json:"sizes"`
	Stock               *int             `json:"stock"`
	CountryAvailability []string         `json:"countryAvailability"`
}

// List godoc
// @Summary List products
// @Tags products
// @Produce json
// @Success 200 {array} model.Product
// @Failure 500 {object} errors.ErrorResponse
// @Router /products [get]
func (h *ProductHandler) List(c echo.Context) error {
	products, err := h.productService.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

// Get godoc
// @Summary Get a product
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} model.Product
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /products/{id} [get]
func (h *ProductHandler) Get(c echo.Context) error {
	product, err := h.productService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

// AdminList godoc
// @Summary List products (admin)
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Success 200 {array} model.Product
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/products [get]
func (h *ProductHandler) AdminList(c echo.Context) error {
	return h.List(c)
}

// AdminGet godoc
// @Summary Get a product (admin)
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Param id path string true "Product ID"
// @Success 200 {object} model.Product
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/products/{id} [get]
func (h *ProductHandler) AdminGet(c echo.Context) error {
	return h.Get(c)
}

// Create godoc
// @Summary Create a product
// @Tags admin
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body CreateProductRequest true "Product"
// @Success 201 {object} model.Product
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/products [post]
func (h *ProductHandler) Create(c echo.Context) error {
	var req CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("Invalid request body")
	}

	product, err := h.productService.Create(c.Request().Context(), service.CreateProductInput{
		Title:               req.Title,
		Description:         req.Description,
		PriceUSD:            req.PriceUSD,
		PriceINR:            req.PriceINR,
		PriceGBP:            req.PriceGBP,
		PriceCAD:            req.PriceCAD,
		Images:              req.Images,
		Videos:              req.Videos,
		Sizes:               req.Sizes,
		Stock:               req.Stock,
		CountryAvailability: req.CountryAvailability,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, product)
}

// Update godoc
// @Summary Update a product
// @Description Shallow-merges the top-level fields of the body into the product. id and createdAt are ignored.
// @Tags admin
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path string true "Product ID"
// @Param request body object true "Fields to change"
// @Success 200 {object} model.Product
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/products/{id} [put]
func (h *ProductHandler) Update(c echo.Context) error {
	var patch store.Patch
	if err := json.NewDecoder(c.Request().Body).Decode(&patch); err != nil {
		return apperrors.Validation("Invalid request body")
	}

	product, err := h.productService.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

// Delete godoc
// @Summary Delete a product
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Param id path string true "Product ID"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/products/{id} [delete]
func (h *ProductHandler) Delete(c echo.Context) error {
	if err := h.productService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Product deleted successfully"})
}
