package handlers

import (
	"errors"
	"net/http"

	"tradebot/internal/engine"
	"tradebot/internal/service"
)

// EngineHandler обрабатывает HTTP запросы управления движком.
//
// Endpoints:
// - POST /api/v1/engine/start - запустить торговлю на символах
// - POST /api/v1/engine/stop - остановить торговлю
// - GET /api/v1/engine/status - текущее состояние
type EngineHandler struct {
	engineService service.EngineServiceInterface
}

// NewEngineHandler создает новый EngineHandler с внедрением зависимостей
func NewEngineHandler(engineService service.EngineServiceInterface) *EngineHandler {
	return &EngineHandler{engineService: engineService}
}

// StartRequest - тело запроса на запуск движка
type StartRequest struct {
	Symbols []string `json:"symbols"`
}

// Start запускает движок на указанных символах.
//
// POST /api/v1/engine/start
// Body: {"symbols": ["BTCUSDT", "ETHUSDT"]}
//
// Response 200 OK:
//
//	{"message": "engine started", "data": {"state": "RUNNING", ...}}
//
// Response 400 Bad Request: пустой или невалидный список символов
// Response 409 Conflict: движок уже запущен
func (h *EngineHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.engineService == nil {
		writeError(w, http.StatusInternalServerError, "engine service not initialized", "")
		return
	}

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.engineService.StartTrading(req.Symbols); err != nil {
		switch {
		case errors.Is(err, engine.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, "engine already running", err.Error())
		case errors.Is(err, engine.ErrNoSymbols):
			writeError(w, http.StatusBadRequest, "invalid symbols", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to start engine", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{
		Message: "engine started",
		Data:    h.engineService.GetStatus(),
	})
}

// Stop останавливает движок. Идемпотентен: повторный вызов на
// остановленном движке тоже отвечает 200.
//
// POST /api/v1/engine/stop
//
// Response 200 OK:
//
//	{"message": "engine stopped", "data": {"state": "STOPPED", ...}}
func (h *EngineHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if h.engineService == nil {
		writeError(w, http.StatusInternalServerError, "engine service not initialized", "")
		return
	}

	if err := h.engineService.StopTrading(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to stop engine", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{
		Message: "engine stopped",
		Data:    h.engineService.GetStatus(),
	})
}

// Status возвращает текущее состояние движка.
// Доступен в любом состоянии, включая STARTING и STOPPING.
//
// GET /api/v1/engine/status
//
// Response 200 OK:
//
//	{"state": "RUNNING", "active_symbols": ["BTCUSDT"], "open_position_count": 1}
func (h *EngineHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.engineService == nil {
		writeError(w, http.StatusInternalServerError, "engine service not initialized", "")
		return
	}

	writeJSON(w, http.StatusOK, h.engineService.GetStatus())
}
