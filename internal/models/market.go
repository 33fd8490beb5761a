package models

import "time"

type MarketType string

const (
	MarketSpot MarketType = "spot"
	MarketSwap MarketType = "swap"
)

// Credentials принадлежат ровно одному клиенту биржи.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
	Testnet    bool
}

// MarketInfo: нормализованные метаданные инструмента + снимок цен.
type MarketInfo struct {
	Symbol       string // BASE/QUOTE
	NativeSymbol string // BTC-USDT-SWAP, BTCUSDT
	Base         string
	Quote        string
	Type         MarketType

	PricePrecision  int32
	AmountPrecision int32 // 0 => только целые контракты
	TickSize        float64
	StepSize        float64
	MinAmount       float64
	MinCost         float64
	ContractSize    float64
	MaxMarketAmount float64
	MaxLeverage     int

	LastPrice  float64
	MarkPrice  float64
	IndexPrice float64

	UpdatedAt time.Time
}

// IntegerContracts: количество в ордере только целым числом контрактов.
func (m MarketInfo) IntegerContracts() bool { return m.AmountPrecision == 0 }

// AccountBalance в валюте котировки (USDT).
type AccountBalance struct {
	Total         float64
	Used          float64
	Free          float64
	MarginRatio   float64 // used/total*100, 0 если total == 0
	UnrealizedPnL float64
	RealizedPnL   float64
	Timestamp     time.Time
}

// NewAccountBalance считает margin ratio из total/used.
func NewAccountBalance(total, used, free, upl, rpl float64, ts time.Time) AccountBalance {
	var ratio float64
	if total > 0 {
		ratio = used / total * 100
	}
	return AccountBalance{
		Total:         total,
		Used:          used,
		Free:          free,
		MarginRatio:   ratio,
		UnrealizedPnL: upl,
		RealizedPnL:   rpl,
		Timestamp:     ts,
	}
}

type PositionInfo struct {
	Symbol     string
	Side       PositionSide
	Size       float64 // всегда >= 0, направление в Side
	EntryPrice float64
	MarginMode MarginMode
	Leverage   int

	LiquidationPrice float64
	MarkPrice        float64
	BreakEvenPrice   float64

	InitialMargin     float64
	MaintenanceMargin float64
	PositionMargin    float64
	OrderMargin       float64
	IsolatedMargin    float64
	MarginRatio       float64

	RealizedPnL    float64
	UnrealizedPnL  float64
	PnLPercent     float64
	Notional       float64
	FreeCollateral float64

	Timestamp time.Time
}

func (p PositionInfo) IsLong() bool  { return p.Side == PositionLong }
func (p PositionInfo) IsShort() bool { return p.Side == PositionShort }

// CloseSide: сторона ордера, уменьшающего позицию.
func (p PositionInfo) CloseSide() Side {
	if p.IsShort() {
		return SideBuy
	}
	return SideSell
}

type OrderInfo struct {
	ID        string
	ClientID  string
	Symbol    string
	Side      Side
	Type      OrderType
	Price     float64
	Amount    float64
	Filled    float64
	Remaining float64
	Status    string
	Timestamp time.Time
}

type LeverageBracket struct {
	Bracket          int
	MaxLeverage      int
	NotionalFloor    float64
	NotionalCap      float64
	MaintMarginRatio float64
	MaxSize          float64
}

type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
