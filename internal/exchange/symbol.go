package exchange

import "strings"

var knownQuotes = []string{"USDT", "USDC", "BUSD", "USD"}

// SplitSymbol разбирает любую запись символа в (base, quote).
// Принимает BTC/USDT, BTC/USDT:USDT, BTC-USDT, BTC-USDT-SWAP, BTCUSDT и просто BTC (quote = USDT).
func SplitSymbol(symbol string) (base, quote string) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}

	if i := strings.IndexByte(s, '/'); i >= 0 {
		base, quote = s[:i], s[i+1:]
		if quote == "" {
			quote = "USDT"
		}
		return base, quote
	}

	if strings.Contains(s, "-") {
		parts := strings.Split(s, "-")
		base = parts[0]
		quote = "USDT"
		if len(parts) >= 2 && parts[1] != "" && parts[1] != "SWAP" {
			quote = parts[1]
		}
		return base, quote
	}

	for _, q := range knownQuotes {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return strings.TrimSuffix(s, q), q
		}
	}
	return s, "USDT"
}

// Unified: BASE/QUOTE, форма символа внутри движка.
func Unified(symbol string) string {
	base, quote := SplitSymbol(symbol)
	return base + "/" + quote
}
