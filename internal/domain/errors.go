package domain

import "errors"

// Sentinel errors surfaced to the protocol layer as response status codes.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrPositionNotFound    = errors.New("position not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNoMatch             = errors.New("no matching records")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)
