package exchange

import (
	"strings"

	"github.com/google/uuid"

	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

// PrepareOrder: LIMIT без цены превращается в MARKET, дальше обычная валидация.
func PrepareOrder(p models.OrderParams) (models.OrderParams, error) {
	if p.Type == models.OrderLimit && p.Price <= 0 {
		logger.Info("[ORDER] %s %s LIMIT without price, sending MARKET", p.Symbol, p.Side)
		p.Type = models.OrderMarket
	}
	p.MarginMode = models.NormalizeMarginMode(p.MarginMode)
	if p.ClientOrderID == "" {
		p.ClientOrderID = NewClientOrderID()
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// NewClientOrderID: 32 символа [0-9a-f], подходит и OKX (clOrdId), и Binance (newClientOrderId).
func NewClientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
