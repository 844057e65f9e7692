package service

import (
	"github.com/rs/zerolog"

	"tradebot/internal/cache"
)

// CacheService - статистика и сброс всех кэшей процесса.
//
// Кэши типизированы по значению, поэтому сервис работает с ними через
// общую поверхность CacheStore и различает их по имени.
type CacheService struct {
	stores map[string]CacheStore
	logger zerolog.Logger
}

// NewCacheService создает новый экземпляр CacheService
func NewCacheService(logger zerolog.Logger) *CacheService {
	return &CacheService{
		stores: make(map[string]CacheStore),
		logger: logger.With().Str("component", "cache_service").Logger(),
	}
}

// Register добавляет именованный кэш. Вызывается при сборке приложения.
func (s *CacheService) Register(name string, store CacheStore) {
	s.stores[name] = store
}

// GetStats возвращает счётчики каждого зарегистрированного кэша
func (s *CacheService) GetStats() map[string]cache.Stats {
	stats := make(map[string]cache.Stats, len(s.stores))
	for name, store := range s.stores {
		stats[name] = store.Stats()
	}
	return stats
}

// ClearAll сбрасывает все кэши, возвращает их количество
func (s *CacheService) ClearAll() int {
	for name, store := range s.stores {
		store.Clear()
		s.logger.Info().Str("cache", name).Msg("cache cleared")
	}
	return len(s.stores)
}
