package domain

import "github.com/shopspring/decimal"

// DefaultStockName is the placeholder display name for positions created
// implicitly by a buy.
const DefaultStockName = "Default"

// Position is a user's holding of one stock symbol. At most one row exists
// per (user, symbol) pair; rows are retained even at zero quantity.
type Position struct {
	ID       int64
	Symbol   string
	Name     string
	Quantity int64
	UserID   int64
}

// OwnedPosition is a position joined with the owning user's name, used by
// the all-users listing.
type OwnedPosition struct {
	Position
	OwnerName string
}

// TradeResult reports the outcome of a buy or sell.
type TradeResult struct {
	Symbol     string
	Quantity   int64
	NewBalance decimal.Decimal
}
