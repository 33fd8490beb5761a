package exchange

import (
	"errors"
	"fmt"

	"trade_executor/internal/models"
)

var (
	ErrValidation            = models.ErrInvalidOrder
	ErrMarketUnavailable     = errors.New("market info unavailable")
	ErrBelowMinimum          = errors.New("quantity below exchange minimum")
	ErrNoPosition            = errors.New("no open position")
	ErrPositionsUnavailable  = errors.New("positions unavailable")
	ErrExchangeNotConfigured = errors.New("exchange not configured")
	ErrNotInitialized        = errors.New("client not initialized")
	ErrNotSupported          = errors.New("operation not supported by exchange")
)

// OrderError: отказ биржи по ордеру/плечу с её кодом.
type OrderError struct {
	Exchange string
	Symbol   string
	Op       string
	Code     string
	Err      error
}

func (e *OrderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s %s: code=%s: %v", e.Exchange, e.Op, e.Symbol, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Exchange, e.Op, e.Symbol, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }
