package service

import (
	"strconv"
	"strings"
	"time"
)

type Instrument struct {
	InstID     string `json:"instId"`
	InstFamily string `json:"instFamily"`
	Uly        string `json:"uly"`
	TickSz     string `json:"tickSz"`
	LotSz      string `json:"lotSz"`
	MinSz      string `json:"minSz"`
	CtVal      string `json:"ctVal"`
	CtMult     string `json:"ctMult"`
	State      string `json:"state"`
	MaxMktSz   string `json:"maxMktSz"`
	Lever      string `json:"lever"`

	CtType    string `json:"ctType"`    // linear / inverse
	SettleCcy string `json:"settleCcy"` // USDT или монета
	CtValCcy  string `json:"ctValCcy"`
}

type positionRow struct {
	AvgPx       string `json:"avgPx"`
	BePx        string `json:"bePx"`
	Imr         string `json:"imr"`
	InstId      string `json:"instId"`
	Last        string `json:"last"`
	Lever       string `json:"lever"`
	LiqPx       string `json:"liqPx"`
	Margin      string `json:"margin"`
	MarkPx      string `json:"markPx"`
	MgnMode     string `json:"mgnMode"`
	MgnRatio    string `json:"mgnRatio"`
	Mmr         string `json:"mmr"`
	NotionalUsd string `json:"notionalUsd"`
	Pos         string `json:"pos"`
	PosSide     string `json:"posSide"`
	RealizedPnl string `json:"realizedPnl"`
	Upl         string `json:"upl"`
	UplRatio    string `json:"uplRatio"`
	UTime       string `json:"uTime"`
}

type balanceDetail struct {
	Ccy       string `json:"ccy"`
	Eq        string `json:"eq"`
	AvailEq   string `json:"availEq"`
	AvailBal  string `json:"availBal"`
	FrozenBal string `json:"frozenBal"`
	Imr       string `json:"imr"`
	Upl       string `json:"upl"`
}

type balanceRow struct {
	TotalEq string          `json:"totalEq"`
	Imr     string          `json:"imr"`
	Upl     string          `json:"upl"`
	UTime   string          `json:"uTime"`
	Details []balanceDetail `json:"details"`
}

type accountConfigRow struct {
	PosMode string `json:"posMode"`
}

type tickerRow struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
}

type markPriceRow struct {
	InstID string `json:"instId"`
	MarkPx string `json:"markPx"`
}

type priceLimitRow struct {
	InstID  string `json:"instId"`
	BuyLmt  string `json:"buyLmt"`
	SellLmt string `json:"sellLmt"`
}

type tierRow struct {
	Tier     string `json:"tier"`
	MaxLever string `json:"maxLever"`
	MinSz    string `json:"minSz"`
	MaxSz    string `json:"maxSz"`
	Mmr      string `json:"mmr"`
}

type leverageRow struct {
	InstID  string `json:"instId"`
	Lever   string `json:"lever"`
	MgnMode string `json:"mgnMode"`
	PosSide string `json:"posSide"`
}

type orderAck struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	AlgoID  string `json:"algoId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// ID: ordId для обычных ордеров, algoId для условных.
func (a orderAck) ID() string {
	if a.OrdID != "" {
		return a.OrdID
	}
	return a.AlgoID
}

type orderRow struct {
	InstID    string `json:"instId"`
	OrdID     string `json:"ordId"`
	ClOrdID   string `json:"clOrdId"`
	Side      string `json:"side"`
	OrdType   string `json:"ordType"`
	Px        string `json:"px"`
	AvgPx     string `json:"avgPx"`
	Sz        string `json:"sz"`
	AccFillSz string `json:"accFillSz"`
	State     string `json:"state"`
	CTime     string `json:"cTime"`
}

type fundingRow struct {
	InstID      string `json:"instId"`
	FundingRate string `json:"fundingRate"`
}

// pf: пустое/битое поле OKX считаем нулём.
func pf(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func msTime(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
