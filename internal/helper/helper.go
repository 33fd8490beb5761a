package helper

import (
	"math"
	"strings"
	"time"
)

// NormTF приводит таймфрейм к виду, который понимают биржи (1m, 15m, 1h, 1d).
func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "240m", "4h":
		return "4h"
	case "1440m", "1d", "24h":
		return "1d"
	default:
		return s
	}
}

// OKXBar: OKX ждёт часы/дни в верхнем регистре: 1H, 4H, 1D.
func OKXBar(tf string) string {
	s := NormTF(tf)
	if strings.HasSuffix(s, "h") || strings.HasSuffix(s, "d") || strings.HasSuffix(s, "w") {
		return strings.ToUpper(s)
	}
	return s
}

func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Floor(px/tick + 1e-12)
	return steps * tick
}

func RoundUpToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Ceil(px/tick - 1e-12)
	return steps * tick
}

// PosKey: ключ состояния позиции в мониторе: "exchange:symbol:side".
func PosKey(exchange, symbol, side string) string {
	return exchange + ":" + symbol + ":" + side
}

func SplitPosKey(key string) (exchange, symbol, side string, ok bool) {
	i := strings.IndexByte(key, ':')
	j := strings.LastIndexByte(key, ':')
	if i <= 0 || j <= i || j >= len(key)-1 {
		return "", "", "", false
	}

	exchange, symbol, side = key[:i], key[i+1:j], key[j+1:]
	if symbol == "" {
		return "", "", "", false
	}

	switch side {
	case "long", "short":
	default:
		return "", "", "", false
	}
	return exchange, symbol, side, true
}

// PctChange: (b-a)/a*100, 0 если a == 0.
func PctChange(a, b float64) float64 {
	if a == 0 {
		return 0
	}
	return (b - a) / a * 100
}

// HoursSince для статистики удержания.
func HoursSince(t time.Time, now time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return now.Sub(t).Hours()
}
