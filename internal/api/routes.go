package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradebot/internal/api/handlers"
	"tradebot/internal/api/middleware"
	"tradebot/internal/service"
	"tradebot/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	EngineService service.EngineServiceInterface
	RiskService   service.RiskServiceInterface
	AlertService  service.AlertServiceInterface
	CacheService  service.CacheServiceInterface
	Hub           *websocket.Hub

	// bcrypt-хэш API ключа; пустая строка отключает аутентификацию
	APIKeyHash string
}

// SetupRoutes настраивает все HTTP маршруты приложения.
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /engine/
//	│   ├── POST /start - запустить торговлю
//	│   ├── POST /stop - остановить торговлю
//	│   └── GET /status - состояние движка
//	├── /risk/
//	│   ├── GET /metrics - метрики риска
//	│   ├── POST /validate - dry-run проверка сделки
//	│   ├── POST /size - расчёт объёма и уровней SL/TP
//	│   └── GET /positions - открытые позиции
//	├── /trades - GET история закрытых сделок
//	├── /alerts - GET история алертов (?since=RFC3339&limit=N)
//	│   └── GET /level - текущий уровень риска
//	└── /cache/
//	    ├── GET /stats - счётчики кэшей
//	    └── DELETE (на /api/v1/cache) - сброс кэшей
//
// /ws/stream - WebSocket для real-time событий
// /health - проверка живости
// /metrics - Prometheus метрики
//
// Middleware в порядке применения: Recovery, Logging, CORS.
// API ключ проверяется только на /api/v1/*.
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	api := router.PathPrefix("/api/v1").Subrouter()
	if deps != nil {
		api.Use(middleware.APIKeyAuth(deps.APIKeyHash))
	}

	if deps != nil && deps.EngineService != nil {
		engineHandler := handlers.NewEngineHandler(deps.EngineService)
		api.HandleFunc("/engine/start", engineHandler.Start).Methods("POST")
		api.HandleFunc("/engine/stop", engineHandler.Stop).Methods("POST")
		api.HandleFunc("/engine/status", engineHandler.Status).Methods("GET")
	}

	if deps != nil && deps.RiskService != nil {
		riskHandler := handlers.NewRiskHandler(deps.RiskService)
		api.HandleFunc("/risk/metrics", riskHandler.GetMetrics).Methods("GET")
		api.HandleFunc("/risk/validate", riskHandler.ValidateTrade).Methods("POST")
		api.HandleFunc("/risk/size", riskHandler.CalculateSize).Methods("POST")
		api.HandleFunc("/risk/positions", riskHandler.GetPositions).Methods("GET")
		api.HandleFunc("/trades", riskHandler.GetTrades).Methods("GET")
	}

	if deps != nil && deps.AlertService != nil {
		alertHandler := handlers.NewAlertHandler(deps.AlertService)
		api.HandleFunc("/alerts", alertHandler.GetAlerts).Methods("GET")
		api.HandleFunc("/alerts/level", alertHandler.GetLevel).Methods("GET")
	}

	if deps != nil && deps.CacheService != nil {
		cacheHandler := handlers.NewCacheHandler(deps.CacheService)
		api.HandleFunc("/cache/stats", cacheHandler.GetStats).Methods("GET")
		api.HandleFunc("/cache", cacheHandler.Clear).Methods("DELETE")
	}

	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
