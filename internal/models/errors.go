package models

import "errors"

var (
	// ErrInsufficientData means an upstream feed was empty or malformed; no
	// verdict may be produced from it.
	ErrInsufficientData = errors.New("insufficient market data")
	// ErrInvalidRiskInput blocks trade confirmation on degenerate sizing input.
	ErrInvalidRiskInput = errors.New("invalid risk input")
	// ErrSchemaMismatch is reported when a persisted journal has unexpected columns.
	ErrSchemaMismatch = errors.New("journal schema mismatch")
	// ErrStoreWrite wraps disk or permission failures while persisting.
	ErrStoreWrite = errors.New("journal write failed")

	ErrTradeNotFound  = errors.New("trade not found")
	ErrTradeNotClosed = errors.New("trade is not closed")
	ErrTradeClosed    = errors.New("trade already closed")
	ErrInvalidPair    = errors.New("invalid pair")
	ErrBiasTooLow     = errors.New("bias checklist score below minimum")
	ErrUnauthorized   = errors.New("unauthorized")
)
