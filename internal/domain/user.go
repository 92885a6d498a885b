package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents an account holder with a cash balance
type User struct {
	ID         int64
	FirstName  string
	LastName   string
	Username   string
	Password   string // bcrypt hash, or a legacy plaintext credential for seed rows
	Role       string
	USDBalance decimal.Decimal
	CreatedAt  time.Time
}

// UserRole constants
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// IsAdmin reports whether the user may run WHO, SHUTDOWN and the
// all-users LIST.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
