package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_PricesAreNumbers(t *testing.T) {
	p := Product{
		ID:       "prod-1",
		PriceUSD: decimal.RequireFromString("10.5"),
		PriceINR: decimal.NewFromInt(861),
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price_in_usd":10.5`)
	assert.Contains(t, string(data), `"price_in_inr":861`)

	var fromFile Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":"prod-1","price_in_usd":25,"price_in_gbp":"19.75"}`), &fromFile))
	assert.True(t, decimal.NewFromInt(25).Equal(fromFile.PriceUSD))
	assert.True(t, decimal.RequireFromString("19.75").Equal(fromFile.PriceGBP))
}
