package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

type Action string

const (
	ActionOpenLong  Action = "OPEN_LONG"
	ActionOpenShort Action = "OPEN_SHORT"
	ActionClose     Action = "CLOSE"
	ActionUpdate    Action = "UPDATE"
)

type ZoneStatus string

const (
	ZonePending   ZoneStatus = "PENDING"
	ZonePlaced    ZoneStatus = "PLACED"
	ZoneFilled    ZoneStatus = "FILLED"
	ZoneCancelled ZoneStatus = "CANCELLED"
)

type EntryZone struct {
	Price    float64    `json:"price"`
	Fraction float64    `json:"percentage"`
	OrderID  string     `json:"order_id,omitempty"`
	Status   ZoneStatus `json:"status"`
}

type TakeProfitLevel struct {
	Price    float64   `json:"price"`
	Fraction float64   `json:"percentage"`
	OrderID  string    `json:"order_id,omitempty"`
	Hit      bool      `json:"is_hit"`
	HitAt    time.Time `json:"hit_time,omitempty"`
}

// TradingSignal: структурированная инструкция от внешнего источника сигналов.
// Движок только читает её и отмечает статусы зон/уровней TP.
type TradingSignal struct {
	ID       string `json:"signal_id"`
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Action   Action `json:"action"`

	EntryPrice float64     `json:"entry_price,omitempty"`
	EntryZones []EntryZone `json:"entry_zones,omitempty"`

	TakeProfit       float64           `json:"take_profit,omitempty"`
	TakeProfitLevels []TakeProfitLevel `json:"take_profit_levels,omitempty"`
	StopLoss         float64           `json:"stop_loss,omitempty"`
	DynamicSL        bool              `json:"dynamic_sl"`

	Leverage     int        `json:"leverage"`
	MarginMode   MarginMode `json:"margin_mode"`
	PositionSize float64    `json:"position_size"`

	Extra     map[string]string `json:"additional_info,omitempty"`
	CreatedAt time.Time         `json:"timestamp"`
}

// Valid: UPDATE и CLOSE могут приходить без входа.
func (s *TradingSignal) Valid() bool {
	if s == nil || strings.TrimSpace(s.Exchange) == "" || strings.TrimSpace(s.Symbol) == "" {
		return false
	}
	switch s.Action {
	case ActionOpenLong, ActionOpenShort:
		return s.EntryPrice > 0 || len(s.EntryZones) > 0 || s.PositionSize > 0
	case ActionClose, ActionUpdate:
		return true
	}
	return false
}

func (s *TradingSignal) IsLong() bool { return s.Action != ActionOpenShort }

// OpenSide: сторона входного ордера.
func (s *TradingSignal) OpenSide() Side {
	if s.Action == ActionOpenShort {
		return SideSell
	}
	return SideBuy
}

// FirstTakeProfit: первый уровень лестницы, иначе TakeProfit.
func (s *TradingSignal) FirstTakeProfit() float64 {
	if len(s.TakeProfitLevels) > 0 {
		return s.TakeProfitLevels[0].Price
	}
	return s.TakeProfit
}

// ExtraPrice: цена из additional_info, если источник её туда положил.
func (s *TradingSignal) ExtraPrice(keys ...string) float64 {
	return extraPrice(s.Extra, keys...)
}

// RiskRewardRatio: |reward/risk| по дальнему тейку и стопу; 0 если стопа нет.
func (s *TradingSignal) RiskRewardRatio() float64 {
	if s.EntryPrice <= 0 || s.StopLoss <= 0 {
		return 0
	}

	var target float64
	if len(s.TakeProfitLevels) > 0 {
		target = s.TakeProfitLevels[0].Price
		for _, lvl := range s.TakeProfitLevels[1:] {
			if s.IsLong() {
				target = math.Max(target, lvl.Price)
			} else {
				target = math.Min(target, lvl.Price)
			}
		}
	} else {
		target = s.TakeProfit
	}
	if target <= 0 {
		return 0
	}

	var reward, risk float64
	if s.IsLong() {
		reward = target - s.EntryPrice
		risk = s.EntryPrice - s.StopLoss
	} else {
		reward = s.EntryPrice - target
		risk = s.StopLoss - s.EntryPrice
	}
	if risk == 0 {
		return 0
	}
	return math.Abs(reward / risk)
}

func extraPrice(extra map[string]string, keys ...string) float64 {
	for _, k := range keys {
		v, ok := extra[k]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil && f > 0 {
			return f
		}
	}
	return 0
}

// Clone: копия со своими срезами и Extra, чтобы монитор и менеджер не делили состояние.
func (s TradingSignal) Clone() TradingSignal {
	cp := s
	cp.EntryZones = append([]EntryZone(nil), s.EntryZones...)
	cp.TakeProfitLevels = append([]TakeProfitLevel(nil), s.TakeProfitLevels...)
	if s.Extra != nil {
		cp.Extra = make(map[string]string, len(s.Extra))
		for k, v := range s.Extra {
			cp.Extra[k] = v
		}
	}
	return cp
}
