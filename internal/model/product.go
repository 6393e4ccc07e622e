package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices are JSON numbers in the data files and the API.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a catalog entry in the products collection.
// Non-USD prices are derived from PriceUSD at creation time when omitted.
type Product struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title" validate:"required"`
	Description         string          `json:"description" validate:"required"`
	PriceUSD            decimal.Decimal `json:"price_in_usd"`
	PriceINR            decimal.Decimal `json:"price_in_inr"`
	PriceGBP            decimal.Decimal `json:"price_in_gbp"`
	PriceCAD            decimal.Decimal `json:"price_in_cad"`
	Images              []string        `json:"images"`
	Videos              []string        `json:"videos"`
	Sizes               []string        `json:"sizes" validate:"required,min=1,dive,required"`
	Stock               int             `json:"stock" validate:"gte=0"`
	CountryAvailability []string        `json:"countryAvailability"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// RecordID implements store.Record.
func (p *Product) RecordID() string { return p.ID }

// Assign implements store.Record.
func (p *Product) Assign(id string, createdAt time.Time) {
	p.ID = id
	p.CreatedAt = createdAt
}
