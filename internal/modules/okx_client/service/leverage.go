package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/opentracing/opentracing-go"

	"trade_executor/internal/exchange"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

func (c *Client) GetLeverageBrackets(ctx context.Context, symbol string) ([]models.LeverageBracket, bool) {
	instID := c.NormalizeSymbol(symbol)
	inst, err := c.instrument(ctx, instID)
	if err != nil {
		logger.Error("[OKX] leverage tiers %s: %v", instID, err)
		return nil, false
	}
	out, err := c.leverageTiers(ctx, instID, inst)
	if err != nil {
		logger.Error("[OKX] leverage tiers %s: %v", instID, err)
		return nil, false
	}
	return out, true
}

func (c *Client) leverageTiers(ctx context.Context, instID string, inst Instrument) ([]models.LeverageBracket, error) {
	if b, ok := c.brackets.Get(instID, bracketsTTL); ok {
		return b, nil
	}

	family := inst.InstFamily
	if family == "" {
		family = inst.Uly
	}
	if family == "" {
		base, quote := exchange.SplitSymbol(instID)
		family = base + "-" + quote
	}

	rows, err := fetch[tierRow](ctx, c, http.MethodGet, "/api/v5/public/position-tiers",
		url.Values{"instType": {"SWAP"}, "tdMode": {"cross"}, "instFamily": {family}}, nil, false)
	if err != nil {
		return nil, err
	}

	out := make([]models.LeverageBracket, 0, len(rows))
	for _, r := range rows {
		tier, _ := strconv.Atoi(r.Tier)
		out = append(out, models.LeverageBracket{
			Bracket:          tier,
			MaxLeverage:      int(pf(r.MaxLever)),
			NotionalFloor:    pf(r.MinSz),
			NotionalCap:      pf(r.MaxSz),
			MaintMarginRatio: pf(r.Mmr),
			MaxSize:          pf(r.MaxSz),
		})
	}
	c.brackets.Set(instID, out)
	return out, nil
}

// maxLeverage: maxLever первого тира, иначе поле lever инструмента; 0 — неизвестно.
func (c *Client) maxLeverage(ctx context.Context, instID string, inst Instrument) int {
	tiers, err := c.leverageTiers(ctx, instID, inst)
	if err == nil && len(tiers) > 0 && tiers[0].MaxLeverage > 0 {
		return tiers[0].MaxLeverage
	}
	if err != nil {
		logger.Warn("[OKX] leverage tiers %s: %v", instID, err)
	}
	return int(pf(inst.Lever))
}

// SetLeverage ограничивает плечо максимумом инструмента и выставляет его на бирже.
// Ошибка фатальна для ордера.
func (c *Client) SetLeverage(ctx context.Context, symbol string, requested int, mode models.MarginMode) (int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "okx.SetLeverage")
	defer span.Finish()

	mode = models.NormalizeMarginMode(mode)
	instID := c.NormalizeSymbol(symbol)

	inst, err := c.instrument(ctx, instID)
	if err != nil {
		return 0, &exchange.OrderError{Exchange: Name, Symbol: symbol, Op: "set_leverage", Err: err}
	}
	lev := exchange.ClampLeverage(requested, c.maxLeverage(ctx, instID, inst))

	// isolated + long_short: плечо задаётся на каждую сторону
	posSides := []string{""}
	if mode == models.MarginIsolated && c.PosMode() == PosModeLongShort {
		posSides = []string{"long", "short"}
	}

	for _, ps := range posSides {
		body := map[string]string{
			"instId":  instID,
			"lever":   strconv.Itoa(lev),
			"mgnMode": string(mode),
		}
		if ps != "" {
			body["posSide"] = ps
		}
		if _, err := fetch[leverageRow](ctx, c, http.MethodPost, "/api/v5/account/set-leverage", nil, body, true); err != nil {
			span.SetTag("error", true)
			return 0, &exchange.OrderError{Exchange: Name, Symbol: symbol, Op: "set_leverage", Err: err}
		}
	}

	logger.Info("[OKX] set %s leverage %s: requested=%d actual=%d", mode, instID, requested, lev)
	return lev, nil
}

func (c *Client) ConvertAmountToContracts(ctx context.Context, symbol string, usdt, price float64, leverage int) (float64, models.ConversionTrace, error) {
	m, ok := c.GetMarketInfo(ctx, symbol)
	if !ok {
		return 0, models.ConversionTrace{}, fmt.Errorf("%w: okx %s", exchange.ErrMarketUnavailable, symbol)
	}
	if price <= 0 {
		price = m.LastPrice
	}
	return exchange.ConvertAmount(*m, usdt, price, leverage, m.MaxLeverage)
}
