package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tradeterm/internal/domain"
)

// PositionRepositoryImpl implements the domain.PositionRepository interface
type PositionRepositoryImpl struct {
	db DB
}

// NewPositionRepository creates a new PositionRepository
func NewPositionRepository(db DB) domain.PositionRepository {
	return &PositionRepositoryImpl{db: db}
}

// Create persists a new position and assigns its ID
func (r *PositionRepositoryImpl) Create(ctx context.Context, position *domain.Position) error {
	query := `
		INSERT INTO positions (stock_symbol, stock_name, stock_balance, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		position.Symbol,
		position.Name,
		position.Quantity,
		position.UserID,
	).Scan(&position.ID)

	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}

	return nil
}

// GetBySymbol retrieves the position a user holds for a symbol
func (r *PositionRepositoryImpl) GetBySymbol(ctx context.Context, userID int64, symbol string) (*domain.Position, error) {
	query := `
		SELECT id, stock_symbol, stock_name, stock_balance, user_id
		FROM positions
		WHERE user_id = $1 AND stock_symbol = $2
	`

	position := &domain.Position{}
	err := r.db.QueryRow(ctx, query, userID, symbol).Scan(
		&position.ID,
		&position.Symbol,
		&position.Name,
		&position.Quantity,
		&position.UserID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPositionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position by symbol: %w", err)
	}

	return position, nil
}

// UpdateQuantity sets the share count of a (user, symbol) position
func (r *PositionRepositoryImpl) UpdateQuantity(ctx context.Context, userID int64, symbol string, quantity int64) error {
	query := `
		UPDATE positions
		SET stock_balance = $1
		WHERE user_id = $2 AND stock_symbol = $3
	`

	tag, err := r.db.Exec(ctx, query, quantity, userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to update position quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPositionNotFound
	}

	return nil
}

// ListByUser retrieves all positions owned by a user
func (r *PositionRepositoryImpl) ListByUser(ctx context.Context, userID int64) ([]*domain.Position, error) {
	query := `
		SELECT id, stock_symbol, stock_name, stock_balance, user_id
		FROM positions
		WHERE user_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions by user: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// ListAllWithOwners retrieves every position joined with its owner's username
func (r *PositionRepositoryImpl) ListAllWithOwners(ctx context.Context) ([]*domain.OwnedPosition, error) {
	query := `
		SELECT p.id, p.stock_symbol, p.stock_name, p.stock_balance, p.user_id, u.user_name
		FROM positions p
		JOIN users u ON p.user_id = u.id
		ORDER BY p.id ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query all positions: %w", err)
	}
	defer rows.Close()

	var positions []*domain.OwnedPosition
	for rows.Next() {
		position := &domain.OwnedPosition{}
		err := rows.Scan(
			&position.ID,
			&position.Symbol,
			&position.Name,
			&position.Quantity,
			&position.UserID,
			&position.OwnerName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, position)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// SearchBySymbol retrieves a user's positions whose symbol contains the fragment
func (r *PositionRepositoryImpl) SearchBySymbol(ctx context.Context, userID int64, fragment string) ([]*domain.Position, error) {
	query := `
		SELECT id, stock_symbol, stock_name, stock_balance, user_id
		FROM positions
		WHERE user_id = $1 AND stock_symbol LIKE '%' || $2 || '%'
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, userID, fragment)
	if err != nil {
		return nil, fmt.Errorf("failed to search positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position
	for rows.Next() {
		position := &domain.Position{}
		err := rows.Scan(
			&position.ID,
			&position.Symbol,
			&position.Name,
			&position.Quantity,
			&position.UserID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, position)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}
