package handlers

import (
	"net/http"
	"strconv"

	"tradebot/internal/models"
	"tradebot/internal/service"
)

// RiskHandler обрабатывает HTTP запросы к риск-состоянию.
//
// Endpoints:
// - GET /api/v1/risk/metrics - производные метрики риска
// - POST /api/v1/risk/validate - dry-run проверка сделки
// - POST /api/v1/risk/size - расчёт объёма и защитных уровней
// - GET /api/v1/risk/positions - открытые позиции
// - GET /api/v1/trades - история закрытых сделок
type RiskHandler struct {
	riskService service.RiskServiceInterface
}

// NewRiskHandler создает новый RiskHandler с внедрением зависимостей
func NewRiskHandler(riskService service.RiskServiceInterface) *RiskHandler {
	return &RiskHandler{riskService: riskService}
}

// GetMetrics возвращает метрики риска.
//
// GET /api/v1/risk/metrics
//
// Response 200 OK:
//
//	{
//	  "total_exposure": 1800.00,
//	  "daily_pnl": -42.50,
//	  "win_rate": 0.62,
//	  "avg_win": 35.10,
//	  "avg_loss": -18.40,
//	  "max_drawdown": 4.2,
//	  "volatility": 27.3,
//	  "sharpe_ratio": 0.41,
//	  "open_positions": 2,
//	  "closed_trades": 48,
//	  "generated_at": "2026-01-15T12:00:00Z"
//	}
func (h *RiskHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.riskService == nil {
		writeError(w, http.StatusInternalServerError, "risk service not initialized", "")
		return
	}

	writeJSON(w, http.StatusOK, h.riskService.GetMetrics())
}

// ValidateRequest - тело запроса dry-run валидации
type ValidateRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Balance  float64 `json:"balance"`
}

// ValidateResponse - результат dry-run валидации
type ValidateResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// ValidateTrade прогоняет гипотетическую сделку через цепочку правил
// без изменения состояния.
//
// POST /api/v1/risk/validate
// Body: {"symbol": "BTCUSDT", "side": "long", "quantity": 0.01, "price": 45000, "balance": 10000}
//
// Response 200 OK:
//
//	{"allowed": true}
//	{"allowed": false, "reason": "daily loss 205.00 exceeds the 200.00 daily-loss floor"}
func (h *RiskHandler) ValidateTrade(w http.ResponseWriter, r *http.Request) {
	if h.riskService == nil {
		writeError(w, http.StatusInternalServerError, "risk service not initialized", "")
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	allowed, reason := h.riskService.ValidateTrade(
		req.Symbol, models.Side(req.Side), req.Quantity, req.Price, req.Balance)

	writeJSON(w, http.StatusOK, ValidateResponse{Allowed: allowed, Reason: reason})
}

// SizeRequest - тело запроса расчёта позиции.
// Step - минимальный шаг объёма символа на бирже, 0 отключает округление.
type SizeRequest struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	EntryPrice float64 `json:"entry_price"`
	Balance    float64 `json:"balance"`
	Step       float64 `json:"step"`
}

// SizeResponse - рассчитанный объём и защитные уровни
type SizeResponse struct {
	Quantity   float64 `json:"quantity"`
	Notional   float64 `json:"notional"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// CalculateSize возвращает объём позиции и уровни SL/TP для
// гипотетического входа, без изменения состояния.
//
// POST /api/v1/risk/size
// Body: {"symbol": "BTCUSDT", "side": "long", "entry_price": 45000, "balance": 10000, "step": 0.001}
//
// Response 200 OK:
//
//	{"quantity": 0.022, "notional": 990.00, "stop_loss": 42750, "take_profit": 49500}
func (h *RiskHandler) CalculateSize(w http.ResponseWriter, r *http.Request) {
	if h.riskService == nil {
		writeError(w, http.StatusInternalServerError, "risk service not initialized", "")
		return
	}

	var req SizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.EntryPrice <= 0 || req.Balance <= 0 {
		writeError(w, http.StatusBadRequest, "entry_price and balance must be positive", "")
		return
	}

	quantity, stopLoss, takeProfit := h.riskService.PlanTrade(
		req.Symbol, models.Side(req.Side), req.EntryPrice, req.Balance, req.Step)

	writeJSON(w, http.StatusOK, SizeResponse{
		Quantity:   quantity,
		Notional:   quantity * req.EntryPrice,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	})
}

// GetPositions возвращает снимок открытых позиций.
//
// GET /api/v1/risk/positions
//
// Response 200 OK:
//
//	[{"symbol": "BTCUSDT", "side": "long", "entry_price": 45000, ...}]
func (h *RiskHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	if h.riskService == nil {
		writeError(w, http.StatusInternalServerError, "risk service not initialized", "")
		return
	}

	positions := h.riskService.GetOpenPositions()
	if positions == nil {
		positions = []models.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// GetTrades возвращает последние закрытые сделки.
//
// GET /api/v1/trades?limit=N
//
// Query Parameters:
// - limit (optional): количество сделок, по умолчанию 50, максимум 500
func (h *RiskHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	if h.riskService == nil {
		writeError(w, http.StatusInternalServerError, "risk service not initialized", "")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 500 {
				limit = 500
			}
		}
	}

	trades, err := h.riskService.GetTradeHistory(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get trades", err.Error())
		return
	}
	if trades == nil {
		trades = []*models.TradeRecord{}
	}
	writeJSON(w, http.StatusOK, trades)
}
