package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"tradeterm/internal/domain"
)

// UserRepositoryImpl implements the domain.UserRepository interface
type UserRepositoryImpl struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create persists a new user and assigns its ID
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (first_name, last_name, user_name, password, role, usd_balance)
		VALUES ($1, $2, $3, $4, $5, $6::numeric)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Password,
		user.Role,
		user.USDBalance.String(),
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, first_name, last_name, user_name, password, role, usd_balance::text, created_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByUsername retrieves a user by username
func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, first_name, last_name, user_name, password, role, usd_balance::text, created_at
		FROM users
		WHERE user_name = $1
	`
	return r.scanUser(r.db.QueryRow(ctx, query, username))
}

// UpdateBalance sets a user's cash balance
func (r *UserRepositoryImpl) UpdateBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	query := `
		UPDATE users
		SET usd_balance = $1::numeric
		WHERE id = $2
	`

	tag, err := r.db.Exec(ctx, query, balance.String(), userID)
	if err != nil {
		return fmt.Errorf("failed to update user balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

func (r *UserRepositoryImpl) scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	var balance string

	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.Password,
		&user.Role,
		&balance,
		&user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.USDBalance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse usd_balance %q: %w", balance, err)
	}

	return user, nil
}
