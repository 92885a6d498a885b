package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeterm/internal/domain"
)

// fakeStore is an in-memory domain.Store. WithinTx serializes transactions
// with a single lock, modeling the isolation the real store gets from
// PostgreSQL transactions.
type fakeStore struct {
	mu        sync.Mutex
	users     map[int64]*domain.User
	positions map[string]*domain.Position
	nextPosID int64
}

func newFakeStore(users ...*domain.User) *fakeStore {
	s := &fakeStore{
		users:     make(map[int64]*domain.User),
		positions: make(map[string]*domain.Position),
	}
	for _, u := range users {
		cp := *u
		s.users[u.ID] = &cp
	}
	return s
}

func (s *fakeStore) Users() domain.UserRepository         { return &fakeUserRepo{s: s} }
func (s *fakeStore) Positions() domain.PositionRepository { return &fakePositionRepo{s: s} }

func (s *fakeStore) WithinTx(ctx context.Context, fn func(domain.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

func posKey(userID int64, symbol string) string {
	return fmt.Sprintf("%d/%s", userID, symbol)
}

type fakeUserRepo struct{ s *fakeStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	user.ID = int64(len(r.s.users) + 1)
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, user := range r.s.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	user, ok := r.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.USDBalance = balance
	return nil
}

type fakePositionRepo struct{ s *fakeStore }

func (r *fakePositionRepo) Create(ctx context.Context, position *domain.Position) error {
	r.s.nextPosID++
	position.ID = r.s.nextPosID
	cp := *position
	r.s.positions[posKey(position.UserID, position.Symbol)] = &cp
	return nil
}

func (r *fakePositionRepo) GetBySymbol(ctx context.Context, userID int64, symbol string) (*domain.Position, error) {
	position, ok := r.s.positions[posKey(userID, symbol)]
	if !ok {
		return nil, domain.ErrPositionNotFound
	}
	cp := *position
	return &cp, nil
}

func (r *fakePositionRepo) UpdateQuantity(ctx context.Context, userID int64, symbol string, quantity int64) error {
	position, ok := r.s.positions[posKey(userID, symbol)]
	if !ok {
		return domain.ErrPositionNotFound
	}
	position.Quantity = quantity
	return nil
}

func (r *fakePositionRepo) ListByUser(ctx context.Context, userID int64) ([]*domain.Position, error) {
	var positions []*domain.Position
	for _, position := range r.s.positions {
		if position.UserID == userID {
			cp := *position
			positions = append(positions, &cp)
		}
	}
	sortPositions(positions)
	return positions, nil
}

func (r *fakePositionRepo) ListAllWithOwners(ctx context.Context) ([]*domain.OwnedPosition, error) {
	var positions []*domain.Position
	for _, position := range r.s.positions {
		cp := *position
		positions = append(positions, &cp)
	}
	sortPositions(positions)

	owned := make([]*domain.OwnedPosition, 0, len(positions))
	for _, position := range positions {
		entry := &domain.OwnedPosition{Position: *position}
		if user, ok := r.s.users[position.UserID]; ok {
			entry.OwnerName = user.Username
		}
		owned = append(owned, entry)
	}
	return owned, nil
}

func (r *fakePositionRepo) SearchBySymbol(ctx context.Context, userID int64, fragment string) ([]*domain.Position, error) {
	var positions []*domain.Position
	for _, position := range r.s.positions {
		if position.UserID == userID && strings.Contains(position.Symbol, fragment) {
			cp := *position
			positions = append(positions, &cp)
		}
	}
	sortPositions(positions)
	return positions, nil
}

func sortPositions(positions []*domain.Position) {
	sort.Slice(positions, func(i, j int) bool { return positions[i].ID < positions[j].ID })
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testUser(id int64, username, role, balance string) *domain.User {
	return &domain.User{
		ID:         id,
		FirstName:  "Test",
		LastName:   "User",
		Username:   username,
		Role:       role,
		USDBalance: dec(balance),
	}
}

func TestBuyDebitsBalanceAndCreatesPosition(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testUser(1, "John", domain.RoleUser, "100.0"))
	svc := NewTradingService(store)

	result, err := svc.Buy(ctx, 1, "AAPL", 2, dec("10.00"))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", result.Symbol)
	assert.Equal(t, int64(2), result.Quantity)
	assert.True(t, result.NewBalance.Equal(dec("80.0")), "got %s", result.NewBalance)

	position, err := store.Positions().GetBySymbol(ctx, 1, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), position.Quantity)
	assert.Equal(t, domain.DefaultStockName, position.Name)
}

func TestBuyIncrementsExistingPosition(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testUser(1, "John", domain.RoleUser, "100.0"))
	svc := NewTradingService(store)

	_, err := svc.Buy(ctx, 1, "AAPL", 2, dec("10.00"))
	require.NoError(t, err)
	result, err := svc.Buy(ctx, 1, "AAPL", 3, dec("10.00"))
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(dec("50.0")))

	position, err := store.Positions().GetBySymbol(ctx, 1, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(5), position.Quantity)
}

func TestBuyInsufficientBalanceLeavesLedgerUntouched(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testUser(1, "John", domain.RoleUser, "100.0"))
	svc := NewTradingService(store)

	_, err := svc.Buy(ctx, 1, "AAPL", 11, dec("10.00"))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	user, err := store.Users().GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.USDBalance.Equal(dec("100.0")))

	_, err = store.Positions().GetBySymbol(ctx, 1, "AAPL")
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)
}

func TestSellCreditsBalanceAndRetainsZeroRow(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testUser(1, "John", domain.RoleUser, "100.0"))
	svc := NewTradingService(store)

	_, err := svc.Buy(ctx, 1, "AAPL", 2, dec("10.00"))
	require.NoError(t, err)

	result, err := svc.Sell(ctx, 1, "AAPL", 2, dec("15.00"))
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(dec("110.0")), "got %s", result.NewBalance)

	// Row is retained at zero quantity
	position, err := store.Positions().GetBySymbol(ctx, 1, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(0), position.Quantity)
}

func TestSellInsufficientStock(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testUser(1, "John", domain.RoleUser, "100.0"))
	svc := NewTradingService(store)

	t.Run("no position at all", func(t *testing.T) {
		_, err := svc.Sell(ctx, 1, "AAPL", 1, dec("10.00"))
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		user, err := store.Users().GetByID(ctx, 1)
		require.NoError(t, err)
		assert.True(t, user.USDBalance.Equal(dec("100.0")))
	})

	t.Run("position too small", func(t *testing.T) {
		_, err := svc.Buy(ctx, 1, "AAPL", 2, dec("10.00"))
		require.NoError(t, err)

		_, err = svc.Sell(ctx, 1, "AAPL", 3, dec("10.00"))
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		position, err := store.Positions().GetBySymbol(ctx, 1, "AAPL")
		require.NoError(t, err)
		assert.Equal(t, int64(2), position.Quantity)
	})
}

// TestBuySellInverse verifies that buying then selling the same quantity at
// the same price restores both the balance and the position quantity.
func TestBuySellInverse(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testUser(1, "John", domain.RoleUser, "100.0"))
	svc := NewTradingService(store)

	_, err := svc.Buy(ctx, 1, "MSFT", 4, dec("7.25"))
	require.NoError(t, err)
	result, err := svc.Sell(ctx, 1, "MSFT", 4, dec("7.25"))
	require.NoError(t, err)

	assert.True(t, result.NewBalance.Equal(dec("100.0")), "got %s", result.NewBalance)
	position, err := store.Positions().GetBySymbol(ctx, 1, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, int64(0), position.Quantity)
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testUser(1, "John", domain.RoleUser, "100.0"))
	svc := NewTradingService(store)

	t.Run("positive amount credits balance", func(t *testing.T) {
		newBalance, err := svc.Deposit(ctx, 1, dec("25.50"))
		require.NoError(t, err)
		assert.True(t, newBalance.Equal(dec("125.50")))
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		_, err := svc.Deposit(ctx, 1, decimal.Zero)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		_, err := svc.Deposit(ctx, 1, dec("-5"))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})
}

func TestBalanceUnknownUser(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := NewTradingService(store)

	_, err := svc.Balance(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testUser(1, "John", domain.RoleUser, "500.0"))
	svc := NewTradingService(store)

	_, err := svc.Buy(ctx, 1, "AAPL", 1, dec("1.00"))
	require.NoError(t, err)
	_, err = svc.Buy(ctx, 1, "AMD", 2, dec("1.00"))
	require.NoError(t, err)
	_, err = svc.Buy(ctx, 1, "MSFT", 3, dec("1.00"))
	require.NoError(t, err)

	t.Run("substring match", func(t *testing.T) {
		positions, err := svc.Lookup(ctx, 1, "A")
		require.NoError(t, err)
		require.Len(t, positions, 2)
		assert.Equal(t, "AAPL", positions[0].Symbol)
		assert.Equal(t, "AMD", positions[1].Symbol)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := svc.Lookup(ctx, 1, "ZZZ")
		assert.ErrorIs(t, err, domain.ErrNoMatch)
	})
}

func TestListByRole(t *testing.T) {
	ctx := context.Background()
	john := testUser(1, "John", domain.RoleUser, "500.0")
	root := testUser(2, "Root", domain.RoleAdmin, "500.0")
	store := newFakeStore(john, root)
	svc := NewTradingService(store)

	_, err := svc.Buy(ctx, 1, "AAPL", 1, dec("1.00"))
	require.NoError(t, err)
	_, err = svc.Buy(ctx, 2, "MSFT", 2, dec("1.00"))
	require.NoError(t, err)

	t.Run("non-admin sees only own positions", func(t *testing.T) {
		positions, err := svc.List(ctx, john)
		require.NoError(t, err)
		require.Len(t, positions, 1)
		assert.Equal(t, "AAPL", positions[0].Symbol)
		assert.Empty(t, positions[0].OwnerName)
	})

	t.Run("admin sees all positions with owners", func(t *testing.T) {
		positions, err := svc.List(ctx, root)
		require.NoError(t, err)
		require.Len(t, positions, 2)
		assert.Equal(t, "John", positions[0].OwnerName)
		assert.Equal(t, "Root", positions[1].OwnerName)
	})
}

// TestConcurrentBuysCannotOverdraw verifies that two concurrent buys, each
// individually affordable but jointly exceeding the balance, result in
// exactly one success and one insufficient-balance failure.
func TestConcurrentBuysCannotOverdraw(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testUser(1, "John", domain.RoleUser, "100.0"))
	svc := NewTradingService(store)

	var successCount, overdraftCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Cost 60 each; the balance covers one, never both.
			_, err := svc.Buy(ctx, 1, "AAPL", 6, dec("10.00"))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientBalance):
				overdraftCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), successCount.Load())
	require.Equal(t, int32(1), overdraftCount.Load())

	user, err := store.Users().GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.USDBalance.Equal(dec("40.0")), "got %s", user.USDBalance)
	assert.False(t, user.USDBalance.IsNegative())
}

// TestConcurrentOperationsOnDistinctUsers verifies that operations on
// different users proceed in parallel without interference.
func TestConcurrentOperationsOnDistinctUsers(t *testing.T) {
	ctx := context.Background()
	const numUsers = 8
	users := make([]*domain.User, 0, numUsers)
	for i := 1; i <= numUsers; i++ {
		users = append(users, testUser(int64(i), fmt.Sprintf("user%d", i), domain.RoleUser, "100.0"))
	}
	store := newFakeStore(users...)
	svc := NewTradingService(store)

	var wg sync.WaitGroup
	for i := 1; i <= numUsers; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := svc.Buy(ctx, id, "AAPL", 5, dec("10.00")); err != nil {
				t.Errorf("buy for user %d: %v", id, err)
			}
			if _, err := svc.Sell(ctx, id, "AAPL", 2, dec("10.00")); err != nil {
				t.Errorf("sell for user %d: %v", id, err)
			}
		}(int64(i))
	}
	wg.Wait()

	for i := 1; i <= numUsers; i++ {
		user, err := store.Users().GetByID(ctx, int64(i))
		require.NoError(t, err)
		assert.True(t, user.USDBalance.Equal(dec("70.0")), "user %d got %s", i, user.USDBalance)

		position, err := store.Positions().GetBySymbol(ctx, int64(i), "AAPL")
		require.NoError(t, err)
		assert.Equal(t, int64(3), position.Quantity)
	}
}
