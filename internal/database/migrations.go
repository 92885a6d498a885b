package database

import (
	"context"
	_ "embed"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/001_init_schema.sql
var migrationSQL string

// RunMigrations creates the ledger schema on startup if it is missing and
// seeds the default users on first run.
func RunMigrations(ctx context.Context, db *pgxpool.Pool) error {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'users'
		)
	`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if migrations needed: %w", err)
	}

	if !exists {
		log.Println("Database is empty, running migrations...")
		if _, err := db.Exec(ctx, migrationSQL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return seedUsers(ctx, db)
}

// seedUsers inserts the two default accounts when no users exist. Root is
// the second row, so it keeps the admin identity of the original seed data.
func seedUsers(ctx context.Context, db *pgxpool.Pool) error {
	var count int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	log.Println("Seeding default users...")
	_, err := db.Exec(ctx, `
		INSERT INTO users (first_name, last_name, user_name, password, role, usd_balance)
		VALUES ('John', 'Doe', 'John', 'John01', 'USER', 100.0),
		       ('Root', 'User', 'Root', 'Root01', 'ADMIN', 100.0)
	`)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	return nil
}
