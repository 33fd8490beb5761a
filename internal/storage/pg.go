package storage

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/bytedance/sonic"

	"trade_executor/internal/models"
	"trade_executor/pkg/db"
)

//go:embed schema.sql
var schema string

// PG: Repository поверх pgx через TxManager.
type PG struct {
	db db.TxManager
}

func NewPG(txm db.TxManager) *PG {
	return &PG{db: txm}
}

// Migrate создаёт таблицы, если их нет. Вся схема в одной транзакции.
func (p *PG) Migrate(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Migrate: %w", err)
		}
	}()
	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, schema)
		return err
	})
}

func (p *PG) SaveSignal(ctx context.Context, s models.TradingSignal) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SaveSignal: %w", err)
		}
	}()

	payload, err := sonic.Marshal(s)
	if err != nil {
		return err
	}
	_, err = p.db.Conn().Exec(ctx, `
		INSERT INTO active_signals (exchange, symbol, signal_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (exchange, symbol) DO UPDATE
		SET signal_id = EXCLUDED.signal_id,
		    action = EXCLUDED.action,
		    payload = EXCLUDED.payload,
		    created_at = EXCLUDED.created_at,
		    updated_at = now()`,
		s.Exchange, s.Symbol, s.ID, string(s.Action), string(payload), s.CreatedAt)
	return err
}

func (p *PG) DeleteSignal(ctx context.Context, exchange, symbol string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.DeleteSignal: %w", err)
		}
	}()
	_, err = p.db.Conn().Exec(ctx, `DELETE FROM active_signals WHERE exchange = $1 AND symbol = $2`, exchange, symbol)
	return err
}

func (p *PG) SavePositionStats(ctx context.Context, s models.PositionStats) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SavePositionStats: %w", err)
		}
	}()
	_, err = p.db.Conn().Exec(ctx, `
		INSERT INTO position_stats (exchange, symbol, side, size, entry_price, current_price, unrealized_pnl,
			margin_ratio, leverage, liquidation_price, profit_pct, max_profit_pct, max_drawdown_pct, holding_hours, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (exchange, symbol, side) DO UPDATE
		SET size = EXCLUDED.size,
		    entry_price = EXCLUDED.entry_price,
		    current_price = EXCLUDED.current_price,
		    unrealized_pnl = EXCLUDED.unrealized_pnl,
		    margin_ratio = EXCLUDED.margin_ratio,
		    leverage = EXCLUDED.leverage,
		    liquidation_price = EXCLUDED.liquidation_price,
		    profit_pct = EXCLUDED.profit_pct,
		    max_profit_pct = EXCLUDED.max_profit_pct,
		    max_drawdown_pct = EXCLUDED.max_drawdown_pct,
		    holding_hours = EXCLUDED.holding_hours,
		    updated_at = EXCLUDED.updated_at`,
		s.Exchange, s.Symbol, string(s.Side), s.Size, s.EntryPrice, s.CurrentPrice, s.UnrealizedPnL,
		s.MarginRatio, s.Leverage, s.LiquidationPrice, s.ProfitPct, s.MaxProfitPct, s.MaxDrawdownPct,
		s.HoldingHours, s.UpdatedAt)
	return err
}

// SaveAccountStatus: снимок в историю, без upsert.
func (p *PG) SaveAccountStatus(ctx context.Context, o models.AccountOverview) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SaveAccountStatus: %w", err)
		}
	}()
	_, err = p.db.Conn().Exec(ctx, `
		INSERT INTO account_status (exchange, total_equity, used_margin, free_margin, margin_ratio,
			unrealized_pnl, realized_pnl, health, total_positions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.Exchange, o.TotalEquity, o.UsedMargin, o.FreeMargin, o.MarginRatio,
		o.UnrealizedPnL, o.RealizedPnL, string(o.Health), o.TotalPositions, o.UpdatedAt)
	return err
}

func (p *PG) SaveEvent(ctx context.Context, e models.Event) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SaveEvent: %w", err)
		}
	}()
	_, err = p.db.Conn().Exec(ctx, `
		INSERT INTO monitor_events (kind, exchange, symbol, event_key, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.Kind), e.Exchange, e.Symbol, e.Key, e.Message, e.At)
	return err
}

// LoadSignals: активные сигналы после рестарта.
func (p *PG) LoadSignals(ctx context.Context) (out []models.TradingSignal, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.LoadSignals: %w", err)
		}
	}()

	err = p.db.RunRepeatableRead(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		rows, err := tx.Query(ctxTx, `SELECT payload::text FROM active_signals ORDER BY created_at`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				return err
			}
			var s models.TradingSignal
			if err := sonic.UnmarshalString(raw, &s); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	return out, err
}

var _ Repository = (*PG)(nil)
