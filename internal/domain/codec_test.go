package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProductCoercesMalformedNumerics(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		price    float64
		stock    int
		repaired bool
	}{
		{
			name:  "well formed",
			raw:   `{"id":"p1","name":"Espresso","price":5.5,"stock":10,"category":"Bebidas"}`,
			price: 5.5, stock: 10,
		},
		{
			name:  "numeric strings",
			raw:   `{"id":"p1","name":"Espresso","price":"5.5","stock":"10"}`,
			price: 5.5, stock: 10, repaired: true,
		},
		{
			name:  "negative price defaults to zero",
			raw:   `{"id":"p1","name":"Espresso","price":-3,"stock":10}`,
			price: 0, stock: 10, repaired: true,
		},
		{
			name:  "garbage stock defaults to zero",
			raw:   `{"id":"p1","name":"Espresso","price":5,"stock":{"oops":true}}`,
			price: 5, stock: 0, repaired: true,
		},
		{
			name:  "missing numerics default to zero",
			raw:   `{"id":"p1","name":"Espresso"}`,
			price: 0, stock: 0, repaired: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, repairs, err := DecodeProduct(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.price, p.Price)
			assert.Equal(t, tt.stock, p.Stock)
			assert.Equal(t, tt.repaired, len(repairs) > 0)
		})
	}
}

func TestDecodeOrderRecomputesTotal(t *testing.T) {
	raw := `{
		"id":"o1","table_id":"t1","waiter_id":"w1","status":"open",
		"created_at":"2025-06-15T12:00:00Z",
		"items":[
			{"product_id":"p1","product_name":"Espresso","quantity":2,"unit_price":5},
			{"product_id":"p2","product_name":"Croissant","quantity":1,"unit_price":7}
		],
		"total":999
	}`
	o, repairs, err := DecodeOrder(json.RawMessage(raw))
	require.NoError(t, err)
	assert.Equal(t, 17.0, o.Total)
	require.NotEmpty(t, repairs)
	assert.Equal(t, "total", repairs[len(repairs)-1].Field)
}

func TestDecodeOrderConsistentTotalNotFlagged(t *testing.T) {
	raw := `{
		"id":"o1","table_id":"t1","waiter_id":"w1","status":"open",
		"created_at":"2025-06-15T12:00:00Z",
		"items":[{"product_id":"p1","product_name":"Espresso","quantity":2,"unit_price":5}],
		"total":10
	}`
	o, repairs, err := DecodeOrder(json.RawMessage(raw))
	require.NoError(t, err)
	assert.Equal(t, 10.0, o.Total)
	assert.Empty(t, repairs)
}

func TestDecodeOrderCoercesItemFields(t *testing.T) {
	raw := `{
		"id":"o1","table_id":"t1","waiter_id":"w1","status":"open",
		"created_at":"2025-06-15T12:00:00Z",
		"items":[{"product_id":"p1","product_name":"Espresso","quantity":"3","unit_price":null}],
		"total":0
	}`
	o, repairs, err := DecodeOrder(json.RawMessage(raw))
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.Equal(t, 0.0, o.Items[0].UnitPrice)
	assert.NotEmpty(t, repairs)
	assert.Equal(t, 0.0, o.Total)
}

func TestDecodeOrderUnknownStatusRepairedToOpen(t *testing.T) {
	raw := `{"id":"o1","table_id":"t1","status":"paused","created_at":"2025-06-15T12:00:00Z","items":[],"total":0}`
	o, repairs, err := DecodeOrder(json.RawMessage(raw))
	require.NoError(t, err)
	assert.Equal(t, OrderOpen, o.Status)
	assert.NotEmpty(t, repairs)
}

func TestDecodeTableDefaultsUnknownStatus(t *testing.T) {
	tb, err := DecodeTable(json.RawMessage(`{"id":"t1","name":"Mesa 1","status":"weird"}`))
	require.NoError(t, err)
	assert.Equal(t, TableAvailable, tb.Status)
}

func TestDecodeProductRejectsNonObject(t *testing.T) {
	_, _, err := DecodeProduct(json.RawMessage(`[1,2,3]`))
	require.Error(t, err)
}
