package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create persists a new user and assigns its ID
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*User, error)

	// UpdateBalance sets a user's cash balance
	UpdateBalance(ctx context.Context, userID int64, balance decimal.Decimal) error
}

// PositionRepository defines the interface for position data operations
type PositionRepository interface {
	// Create persists a new position and assigns its ID
	Create(ctx context.Context, position *Position) error

	// GetBySymbol retrieves the position a user holds for a symbol, or
	// ErrPositionNotFound
	GetBySymbol(ctx context.Context, userID int64, symbol string) (*Position, error)

	// UpdateQuantity sets the share count of a (user, symbol) position
	UpdateQuantity(ctx context.Context, userID int64, symbol string, quantity int64) error

	// ListByUser retrieves all positions owned by a user
	ListByUser(ctx context.Context, userID int64) ([]*Position, error)

	// ListAllWithOwners retrieves every position joined with its owner's username
	ListAllWithOwners(ctx context.Context) ([]*OwnedPosition, error)

	// SearchBySymbol retrieves a user's positions whose symbol contains the fragment
	SearchBySymbol(ctx context.Context, userID int64, fragment string) ([]*Position, error)
}

// Store bundles the ledger repositories with transaction control. WithinTx
// runs fn against a store whose repositories share one transaction; the
// transaction commits only if fn returns nil.
type Store interface {
	Users() UserRepository
	Positions() PositionRepository
	WithinTx(ctx context.Context, fn func(Store) error) error
}
