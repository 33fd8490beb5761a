package manager

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"trade_executor/internal/exchange"
	"trade_executor/internal/models"
	"trade_executor/pkg/logger"
)

const (
	maxSignalBody = 64 << 10
	tokenHeader   = "X-API-Token"
)

// RegisterHTTP вешает приём сигналов и сводки на общий mux.
// Непустой token закрывает POST-ручки: без заголовка X-API-Token запрос получает 401.
func RegisterHTTP(mux *http.ServeMux, m *Manager, token string) {
	mux.HandleFunc("POST /v1/signals", requireToken(token, m.handleSignal))
	mux.HandleFunc("POST /v1/margin", requireToken(token, m.handleMargin))
	mux.HandleFunc("GET /v1/signals", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.ActiveSignals())
	})
	mux.HandleFunc("GET /v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.GetAccountOverview(r.Context()))
	})
	mux.HandleFunc("GET /v1/positions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.GetPositions(r.Context()))
	})
	mux.HandleFunc("GET /v1/orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.GetOpenOrders(r.Context(), r.URL.Query().Get("symbol")))
	})
	mux.HandleFunc("GET /v1/funding", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.GetFundingRates(r.Context()))
	})
}

func requireToken(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(tokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			logger.Warn("[MANAGER] rejected %s %s from %s: bad token", r.Method, r.URL.Path, r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// readBody: тело не больше maxSignalBody, иначе 413.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSignalBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func (m *Manager) handleSignal(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var sig models.TradingSignal
	if err := sonic.Unmarshal(body, &sig); err != nil {
		http.Error(w, "bad signal: "+err.Error(), http.StatusBadRequest)
		return
	}

	logger.Info("[MANAGER] signal %s %s %s via http", sig.Exchange, sig.Symbol, sig.Action)
	res := m.ExecuteSignal(r.Context(), sig)

	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

type marginRequest struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Amount   float64 `json:"amount"`
	Add      bool    `json:"add"`
}

func (m *Manager) handleMargin(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req marginRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	done, err := m.TransferMargin(r.Context(), req.Exchange, req.Symbol, req.Amount, req.Add)
	switch {
	case errors.Is(err, exchange.ErrExchangeNotConfigured), errors.Is(err, exchange.ErrNotSupported):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, exchange.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": done})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
