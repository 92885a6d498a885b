package tcp

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradeOrder(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		ok    bool
		qty   int64
		price string
	}{
		{name: "valid order", line: "BUY AAPL 10 15.50 1", ok: true, qty: 10, price: "15.50"},
		{name: "whole number price", line: "BUY AAPL 10 15 1", ok: true, qty: 10, price: "15"},
		{name: "single fraction digit", line: "SELL MSFT 3 9.5 2", ok: true, qty: 3, price: "9.5"},
		{name: "single letter symbol", line: "BUY F 1 2.00 1", ok: true, qty: 1, price: "2.00"},
		{name: "lowercase symbol", line: "BUY aapl 10 15.50 1"},
		{name: "symbol too long", line: "BUY STOCK 10 15.50 1"},
		{name: "quantity not numeric", line: "BUY AAPL ten 15.50 1"},
		{name: "negative quantity", line: "BUY AAPL -1 15.50 1"},
		{name: "three fraction digits", line: "BUY AAPL 10 15.505 1"},
		{name: "price with no fraction digits", line: "BUY AAPL 10 15. 1"},
		{name: "price not numeric", line: "BUY AAPL 10 abc 1"},
		{name: "missing trailing digit", line: "BUY AAPL 10 15.50"},
		{name: "trailing token not a digit", line: "BUY AAPL 10 15.50 x"},
		{name: "trailing token too long", line: "BUY AAPL 10 15.50 12"},
		{name: "too many fields", line: "BUY AAPL 10 15.50 1 extra"},
		{name: "verb only", line: "BUY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, ok := parseTradeOrder(strings.Fields(tt.line))
			if !tt.ok {
				assert.False(t, ok)
				assert.Nil(t, order)
				return
			}
			require.True(t, ok)
			assert.Equal(t, strings.Fields(tt.line)[1], order.Symbol)
			assert.Equal(t, tt.qty, order.Quantity)
			assert.True(t, order.Price.Equal(decimal.RequireFromString(tt.price)))
		})
	}
}
