// Command provision creates a ledger user out of band. Passwords are stored
// as bcrypt hashes; only the seed rows carry legacy plaintext credentials.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tradeterm/configs"
	"tradeterm/internal/database"
	"tradeterm/internal/domain"
	"tradeterm/internal/infra"
	"tradeterm/internal/repository"
)

func main() {
	var (
		username  = flag.String("username", "", "login name (required)")
		password  = flag.String("password", "", "password (required)")
		firstName = flag.String("first", "", "first name")
		lastName  = flag.String("last", "", "last name")
		balance   = flag.String("balance", "100.0", "starting USD balance")
		admin     = flag.Bool("admin", false, "grant the ADMIN role")
	)
	flag.Parse()

	if *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	startingBalance, err := decimal.NewFromString(*balance)
	if err != nil || startingBalance.IsNegative() {
		log.Fatalf("Invalid starting balance %q", *balance)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}
	cfg := configs.Load()

	ctx := context.Background()
	db, err := infra.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	role := domain.RoleUser
	if *admin {
		role = domain.RoleAdmin
	}

	user := &domain.User{
		FirstName:  *firstName,
		LastName:   *lastName,
		Username:   *username,
		Password:   string(hash),
		Role:       role,
		USDBalance: startingBalance,
	}

	store := repository.NewStore(db)
	if err := store.Users().Create(ctx, user); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	log.Printf("Created user %s (id=%d, role=%s, balance=%s)",
		user.Username, user.ID, user.Role, user.USDBalance.StringFixed(2))
}
