package handlers

import (
	"net/http"

	"tradebot/internal/service"
)

// CacheHandler обрабатывает HTTP запросы к кэшам процесса.
//
// Endpoints:
// - GET /api/v1/cache/stats - счётчики каждого кэша
// - DELETE /api/v1/cache - сброс всех кэшей
type CacheHandler struct {
	cacheService service.CacheServiceInterface
}

// NewCacheHandler создает новый CacheHandler с внедрением зависимостей
func NewCacheHandler(cacheService service.CacheServiceInterface) *CacheHandler {
	return &CacheHandler{cacheService: cacheService}
}

// GetStats возвращает счётчики всех зарегистрированных кэшей.
//
// GET /api/v1/cache/stats
//
// Response 200 OK:
//
//	{
//	  "prices": {"hits": 1200, "misses": 80, "evictions": 5, "size": 42},
//	  "signals": {"hits": 340, "misses": 61, "evictions": 0, "size": 12}
//	}
func (h *CacheHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.cacheService == nil {
		writeError(w, http.StatusInternalServerError, "cache service not initialized", "")
		return
	}

	writeJSON(w, http.StatusOK, h.cacheService.GetStats())
}

// Clear сбрасывает все кэши.
//
// DELETE /api/v1/cache
//
// Response 200 OK:
//
//	{"message": "caches cleared", "data": {"cleared": 2}}
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.cacheService == nil {
		writeError(w, http.StatusInternalServerError, "cache service not initialized", "")
		return
	}

	cleared := h.cacheService.ClearAll()
	writeJSON(w, http.StatusOK, SuccessResponse{
		Message: "caches cleared",
		Data:    map[string]int{"cleared": cleared},
	})
}
