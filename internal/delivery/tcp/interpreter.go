package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"tradeterm/internal/domain"
)

// TradingOperations is the business surface the interpreter dispatches to.
type TradingOperations interface {
	Buy(ctx context.Context, userID int64, symbol string, qty int64, price decimal.Decimal) (*domain.TradeResult, error)
	Sell(ctx context.Context, userID int64, symbol string, qty int64, price decimal.Decimal) (*domain.TradeResult, error)
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Balance(ctx context.Context, userID int64) (*domain.User, error)
	Lookup(ctx context.Context, userID int64, fragment string) ([]*domain.Position, error)
	List(ctx context.Context, user *domain.User) ([]*domain.OwnedPosition, error)
}

// SessionRegistry is the session surface the delivery layer needs.
type SessionRegistry interface {
	Register(username, addr string)
	Unregister(username string)
	Snapshot() []domain.Session
}

// Authenticator resolves LOGIN credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*domain.User, error)
}

// Interpreter parses one command line, dispatches it, and writes the framed
// response. It is shared by all connections and holds no per-connection
// state.
type Interpreter struct {
	trading  TradingOperations
	registry SessionRegistry
	shutdown func()
}

// NewInterpreter creates a new Interpreter
func NewInterpreter(trading TradingOperations, registry SessionRegistry) *Interpreter {
	return &Interpreter{trading: trading, registry: registry}
}

// Execute handles one command line from an authenticated user, writing the
// response to w. It returns true when the connection should terminate.
func (i *Interpreter) Execute(ctx context.Context, user *domain.User, line string, w io.Writer) bool {
	switch {
	case line == "LIST":
		i.handleList(ctx, user, w)
	case line == "BALANCE":
		i.handleBalance(ctx, user, w)
	case strings.HasPrefix(line, "DEPOSIT"):
		i.handleDeposit(ctx, user, line, w)
	case strings.HasPrefix(line, "BUY"):
		i.handleTrade(ctx, user, line, "BUY", w)
	case strings.HasPrefix(line, "SELL"):
		i.handleTrade(ctx, user, line, "SELL", w)
	case strings.HasPrefix(line, "LOOKUP"):
		i.handleLookup(ctx, user, line, w)
	case line == "WHO":
		i.handleWho(user, w)
	case line == "SHUTDOWN":
		i.handleShutdown(user, w)
	case line == "LOGOUT":
		send(w, frameOK)
		i.registry.Unregister(user.Username)
	case line == "QUIT":
		send(w, frameOK)
		return true
	default:
		send(w, frameInvalidCommand)
	}
	return false
}

func (i *Interpreter) handleList(ctx context.Context, user *domain.User, w io.Writer) {
	positions, err := i.trading.List(ctx, user)
	if err != nil {
		log.Printf("[tcp] LIST failed for user %d: %v", user.ID, err)
		send(w, received("LIST"), frameInternalError)
		return
	}
	if len(positions) == 0 {
		send(w, received("LIST"), fmt.Sprintf("   No stocks found for user %d", user.ID))
		return
	}

	var b strings.Builder
	if user.IsAdmin() {
		b.WriteString("   The list of all records in the Stocks database:\n")
		for idx, p := range positions {
			fmt.Fprintf(&b, "   %d %s %d %s\n", idx+1, p.Symbol, p.Quantity, p.OwnerName)
		}
	} else {
		fmt.Fprintf(&b, "   The list of records in the Stocks database for user %d\n", user.ID)
		for idx, p := range positions {
			fmt.Fprintf(&b, "   %d %s %s %d\n", idx+1, p.Symbol, p.Name, p.Quantity)
		}
	}
	send(w, received("LIST"), frameOK, b.String())
}

func (i *Interpreter) handleBalance(ctx context.Context, user *domain.User, w io.Writer) {
	current, err := i.trading.Balance(ctx, user.ID)
	if errors.Is(err, domain.ErrUserNotFound) {
		send(w, received("BALANCE"), frameUserNotFound)
		return
	}
	if err != nil {
		log.Printf("[tcp] BALANCE failed for user %d: %v", user.ID, err)
		send(w, received("BALANCE"), frameInternalError)
		return
	}
	detail := fmt.Sprintf("   Balance for user %s %s is %s",
		current.FirstName, current.LastName, money(current.USDBalance))
	send(w, received("BALANCE"), frameOK, detail)
}

func (i *Interpreter) handleDeposit(ctx context.Context, user *domain.User, line string, w io.Writer) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		send(w, frameInvalidCommand)
		return
	}
	amount, err := decimal.NewFromString(fields[1])
	if err != nil {
		send(w, frameInvalidAmount)
		return
	}

	newBalance, err := i.trading.Deposit(ctx, user.ID, amount)
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		send(w, frameInvalidAmount)
	case err != nil:
		log.Printf("[tcp] DEPOSIT failed for user %d: %v", user.ID, err)
		send(w, frameInternalError)
	default:
		send(w, "s: DEPOSIT successfully. New balance "+money(newBalance))
	}
}

func (i *Interpreter) handleTrade(ctx context.Context, user *domain.User, line, verb string, w io.Writer) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != verb {
		send(w, frameInvalidCommand)
		return
	}
	order, ok := parseTradeOrder(fields)
	if !ok {
		hint := fmt.Sprintf("   Format is: %s <stock_symbol> <amount> <price per stock> <user_id>", verb)
		send(w, frameFormatError, hint)
		return
	}

	var result *domain.TradeResult
	var err error
	if verb == "BUY" {
		result, err = i.trading.Buy(ctx, user.ID, order.Symbol, order.Quantity, order.Price)
	} else {
		result, err = i.trading.Sell(ctx, user.ID, order.Symbol, order.Quantity, order.Price)
	}

	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		send(w, received(line), "   403 Insufficient Balance")
	case errors.Is(err, domain.ErrInsufficientStock):
		send(w, received(line), "   403 Insufficient Stock")
	case errors.Is(err, domain.ErrUserNotFound):
		send(w, received(line), frameUserNotFound)
	case err != nil:
		log.Printf("[tcp] %s failed for user %d: %v", verb, user.ID, err)
		send(w, received(line), frameInternalError)
	default:
		word := "BOUGHT"
		if verb == "SELL" {
			word = "SOLD"
		}
		detail := fmt.Sprintf("   %s: New Balance: %d %s. USD balance %s",
			word, result.Quantity, result.Symbol, money(result.NewBalance))
		send(w, received(line), frameOK, detail)
	}
}

func (i *Interpreter) handleLookup(ctx context.Context, user *domain.User, line string, w io.Writer) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		send(w, frameInvalidCommand)
		return
	}

	positions, err := i.trading.Lookup(ctx, user.ID, fields[1])
	if errors.Is(err, domain.ErrNoMatch) {
		send(w, "404 Your search did not match any records.")
		return
	}
	if err != nil {
		log.Printf("[tcp] LOOKUP failed for user %d: %v", user.ID, err)
		send(w, frameInternalError)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "   Found %d match(es)\n", len(positions))
	for _, p := range positions {
		fmt.Fprintf(&b, "   %s %d\n", p.Symbol, p.Quantity)
	}
	send(w, "s: "+frameOK, b.String())
}

func (i *Interpreter) handleWho(user *domain.User, w io.Writer) {
	if !user.IsAdmin() {
		send(w, frameNotPermitted)
		return
	}

	var b strings.Builder
	b.WriteString("   The list of active users:\n")
	for _, session := range i.registry.Snapshot() {
		fmt.Fprintf(&b, "   %s   %s\n", session.Username, session.Addr)
	}
	send(w, frameOK, b.String())
}

func (i *Interpreter) handleShutdown(user *domain.User, w io.Writer) {
	if !user.IsAdmin() {
		send(w, frameNotPermitted)
		return
	}
	send(w, received("SHUTDOWN"), frameOK)
	log.Printf("[tcp] SHUTDOWN issued by %s", user.Username)
	if i.shutdown != nil {
		i.shutdown()
	}
}
