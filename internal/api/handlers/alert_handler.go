package handlers

import (
	"net/http"
	"strconv"
	"time"

	"tradebot/internal/models"
	"tradebot/internal/service"
)

// AlertHandler обрабатывает HTTP запросы к истории алертов.
//
// Endpoints:
// - GET /api/v1/alerts?since=RFC3339&limit=N - история алертов
// - GET /api/v1/alerts/level - текущий уровень риска
type AlertHandler struct {
	alertService service.AlertServiceInterface
}

// NewAlertHandler создает новый AlertHandler с внедрением зависимостей
func NewAlertHandler(alertService service.AlertServiceInterface) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// GetAlerts возвращает алерты мониторинга.
//
// GET /api/v1/alerts?since=2026-01-15T00:00:00Z&limit=50
//
// Query Parameters:
// - since (optional): RFC3339 метка, по умолчанию без нижней границы
// - limit (optional): максимум записей, по умолчанию 100, максимум 500
//
// Response 200 OK:
//
//	[{"id": 1, "level": "HIGH", "type": "ORDER_FAILED", "message": "...", "timestamp": "..."}]
//
// Response 400 Bad Request: невалидный since
func (h *AlertHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	if h.alertService == nil {
		writeError(w, http.StatusInternalServerError, "alert service not initialized", "")
		return
	}

	var since time.Time
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since parameter, expected RFC3339", err.Error())
			return
		}
		since = parsed
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 500 {
				limit = 500
			}
		}
	}

	alerts := h.alertService.GetAlerts(since, limit)
	if alerts == nil {
		alerts = []models.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// GetLevel возвращает последний классифицированный уровень риска.
//
// GET /api/v1/alerts/level
//
// Response 200 OK:
//
//	{"level": "MEDIUM"}
func (h *AlertHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	if h.alertService == nil {
		writeError(w, http.StatusInternalServerError, "alert service not initialized", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]models.RiskLevel{"level": h.alertService.CurrentLevel()})
}
