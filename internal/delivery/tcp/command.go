package tcp

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// maxSymbolLen matches the stock_symbol column width.
const maxSymbolLen = 4

// TradeOrder is the structured form of a validated BUY or SELL line.
type TradeOrder struct {
	Symbol   string
	Quantity int64
	Price    decimal.Decimal
}

// parseTradeOrder validates "<verb> <SYMBOL> <qty> <price> <digit>" field by
// field and produces a typed order. The trailing single-digit token is
// required by the grammar but carries no meaning and is discarded.
func parseTradeOrder(fields []string) (*TradeOrder, bool) {
	if len(fields) != 5 {
		return nil, false
	}

	symbol := fields[1]
	if !isSymbol(symbol) {
		return nil, false
	}

	if !isDigits(fields[2]) {
		return nil, false
	}
	qty, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, false
	}

	if !isPrice(fields[3]) {
		return nil, false
	}
	price, err := decimal.NewFromString(fields[3])
	if err != nil {
		return nil, false
	}

	if !isSingleDigit(fields[4]) {
		return nil, false
	}

	return &TradeOrder{Symbol: symbol, Quantity: qty, Price: price}, true
}

// isSymbol reports whether s is 1-4 uppercase letters.
func isSymbol(s string) bool {
	if len(s) == 0 || len(s) > maxSymbolLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isPrice reports whether s is digits with an optional 1-2 digit fraction.
func isPrice(s string) bool {
	whole := s
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			whole = s[:i]
			frac := s[i+1:]
			if len(frac) < 1 || len(frac) > 2 || !isDigits(frac) {
				return false
			}
			break
		}
	}
	return isDigits(whole)
}

func isSingleDigit(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}
