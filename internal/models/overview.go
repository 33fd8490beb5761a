package models

import "time"

type Health string

const (
	HealthHealthy  Health = "HEALTHY"
	HealthWarning  Health = "WARNING"
	HealthCritical Health = "CRITICAL"
)

// ClassifyHealth по margin ratio в процентах.
func ClassifyHealth(marginRatio float64) Health {
	switch {
	case marginRatio > 80:
		return HealthCritical
	case marginRatio > 60:
		return HealthWarning
	default:
		return HealthHealthy
	}
}

type AccountOverview struct {
	Exchange       string
	TotalEquity    float64
	UsedMargin     float64
	FreeMargin     float64
	MarginRatio    float64
	UnrealizedPnL  float64
	RealizedPnL    float64
	Health         Health
	TotalPositions int
	UpdatedAt      time.Time
}

type RiskMetrics struct {
	PositionValue       float64
	MarginRatio         float64
	LeverageUsed        float64
	LiquidationDistance float64 // % от цены входа
}

// PositionStats: отчётность по позиции, на управление не влияет.
type PositionStats struct {
	Exchange         string
	Symbol           string
	Side             PositionSide
	Size             float64
	EntryPrice       float64
	CurrentPrice     float64
	UnrealizedPnL    float64
	MarginRatio      float64
	Leverage         int
	LiquidationPrice float64
	ProfitPct        float64
	MaxProfitPct     float64
	MaxDrawdownPct   float64
	HoldingHours     float64
	UpdatedAt        time.Time
}

type EventKind string

const (
	EventTakeProfitHit EventKind = "tp_hit"
	EventStopMoved     EventKind = "stop_moved"
	EventRiskWarning   EventKind = "risk_warning"
	EventAccountHealth EventKind = "account_health"
	EventPositionGone  EventKind = "position_closed"
)

type Event struct {
	Kind     EventKind
	Exchange string
	Symbol   string
	// Key различает события одного вида по символу: сторона, номер TP, вид риска.
	Key      string
	Message  string
	At       time.Time
}
