package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Terminal Session Errors
	ErrNotConnected         = errors.New("no active terminal session")
	ErrConnectionFailed     = errors.New("failed to connect to the terminal")
	ErrTerminalUnavailable  = errors.New("terminal is unavailable")
	ErrAuthenticationFailed = errors.New("terminal authentication failed (check credentials)")
	ErrRateLimited          = errors.New("terminal request rate limit exceeded")

	// Trade Errors
	ErrTradeRejected     = errors.New("trade request rejected by the broker")
	ErrInsufficientFunds = errors.New("insufficient margin for operation")
	ErrMarketClosed      = errors.New("market is closed")
	ErrInvalidStops      = errors.New("invalid stop loss or take profit levels")
	ErrOrderNotFound     = errors.New("order not found at the terminal")
	ErrPositionNotFound  = errors.New("position not found at the terminal")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
)
