package models

import "errors"

// Sentinel errors shared by the ledger, the stores and the API.
// Callers wrap them with detail; match with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrInvalidShareCount  = errors.New("share count must be a positive integer")
	ErrInvalidDirection   = errors.New("direction must be 'buy' or 'sell'")
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrQuoteUnavailable   = errors.New("quote unavailable")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNotFound, "not_found"},
	{ErrUsernameTaken, "username_taken"},
	{ErrInvalidSymbol, "invalid_symbol"},
	{ErrInvalidShareCount, "invalid_share_count"},
	{ErrInvalidDirection, "invalid_direction"},
	{ErrUnknownSymbol, "unknown_symbol"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrInsufficientShares, "insufficient_shares"},
	{ErrQuoteUnavailable, "quote_unavailable"},
}

// ErrorCode returns the stable wire code for err, or "internal_error" when
// err does not wrap one of the sentinels above.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_error"
}
