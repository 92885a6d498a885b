package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"tradeterm/internal/domain"
)

// TradingService implements the trading operations on top of the ledger
// store. Each mutating operation holds the caller's user lock for its whole
// read-check-write sequence and commits its writes in one transaction, so
// two concurrent buys by the same user can never both pass the balance check
// against a stale read. Operations on different users proceed in parallel.
type TradingService struct {
	store domain.Store
	locks userLocks
}

// NewTradingService creates a new TradingService
func NewTradingService(store domain.Store) *TradingService {
	return &TradingService{store: store}
}

// Buy purchases qty shares of symbol at the caller-supplied price. It fails
// with domain.ErrInsufficientBalance, leaving the ledger untouched, when the
// cost exceeds the user's cash. The balance debit and the position change
// commit as one unit.
func (s *TradingService) Buy(ctx context.Context, userID int64, symbol string, qty int64, price decimal.Decimal) (*domain.TradeResult, error) {
	defer s.locks.lock(userID)()

	var result *domain.TradeResult
	err := s.store.WithinTx(ctx, func(tx domain.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}

		cost := price.Mul(decimal.NewFromInt(qty))
		if user.USDBalance.LessThan(cost) {
			return domain.ErrInsufficientBalance
		}

		newBalance := user.USDBalance.Sub(cost)
		if err := tx.Users().UpdateBalance(ctx, userID, newBalance); err != nil {
			return err
		}

		position, err := tx.Positions().GetBySymbol(ctx, userID, symbol)
		switch {
		case errors.Is(err, domain.ErrPositionNotFound):
			err = tx.Positions().Create(ctx, &domain.Position{
				Symbol:   symbol,
				Name:     domain.DefaultStockName,
				Quantity: qty,
				UserID:   userID,
			})
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Positions().UpdateQuantity(ctx, userID, symbol, position.Quantity+qty); err != nil {
				return err
			}
		}

		result = &domain.TradeResult{Symbol: symbol, Quantity: qty, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Sell disposes qty shares of symbol at the caller-supplied price. It fails
// with domain.ErrInsufficientStock, leaving the ledger untouched, when the
// position is absent or too small. The position row is retained even when
// its quantity reaches zero.
func (s *TradingService) Sell(ctx context.Context, userID int64, symbol string, qty int64, price decimal.Decimal) (*domain.TradeResult, error) {
	defer s.locks.lock(userID)()

	var result *domain.TradeResult
	err := s.store.WithinTx(ctx, func(tx domain.Store) error {
		position, err := tx.Positions().GetBySymbol(ctx, userID, symbol)
		if errors.Is(err, domain.ErrPositionNotFound) || (err == nil && position.Quantity < qty) {
			return domain.ErrInsufficientStock
		}
		if err != nil {
			return err
		}

		if err := tx.Positions().UpdateQuantity(ctx, userID, symbol, position.Quantity-qty); err != nil {
			return err
		}

		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}

		newBalance := user.USDBalance.Add(price.Mul(decimal.NewFromInt(qty)))
		if err := tx.Users().UpdateBalance(ctx, userID, newBalance); err != nil {
			return err
		}

		result = &domain.TradeResult{Symbol: symbol, Quantity: qty, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Deposit credits amount to the caller's balance. Fails with
// domain.ErrInvalidAmount unless amount is positive.
func (s *TradingService) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	defer s.locks.lock(userID)()

	var newBalance decimal.Decimal
	err := s.store.WithinTx(ctx, func(tx domain.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		newBalance = user.USDBalance.Add(amount)
		return tx.Users().UpdateBalance(ctx, userID, newBalance)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// Balance returns the caller's user record, including name and cash balance.
func (s *TradingService) Balance(ctx context.Context, userID int64) (*domain.User, error) {
	return s.store.Users().GetByID(ctx, userID)
}

// Lookup returns the caller's positions whose symbol contains fragment as a
// substring, or domain.ErrNoMatch when none do.
func (s *TradingService) Lookup(ctx context.Context, userID int64, fragment string) ([]*domain.Position, error) {
	positions, err := s.store.Positions().SearchBySymbol(ctx, userID, fragment)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, domain.ErrNoMatch
	}
	return positions, nil
}

// List returns the caller's positions. An admin caller gets every user's
// positions joined with the owners' usernames.
func (s *TradingService) List(ctx context.Context, user *domain.User) ([]*domain.OwnedPosition, error) {
	if user.IsAdmin() {
		return s.store.Positions().ListAllWithOwners(ctx)
	}

	positions, err := s.store.Positions().ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	owned := make([]*domain.OwnedPosition, 0, len(positions))
	for _, position := range positions {
		owned = append(owned, &domain.OwnedPosition{Position: *position})
	}
	return owned, nil
}

// userLocks hands out one mutex per user id. The zero value is ready to use.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// lock acquires the mutex for userID and returns its unlock func.
func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
