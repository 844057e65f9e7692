package service

import (
	"github.com/rs/zerolog"

	"tradebot/internal/engine"
)

// EngineService - управление жизненным циклом торгового движка.
//
// Тонкая обёртка над engine.Engine для HTTP слоя: движок остаётся
// единственным владельцем машины состояний, сервис только
// транслирует команды и логирует их источник.
type EngineService struct {
	engine *engine.Engine
	logger zerolog.Logger
}

// NewEngineService создает новый экземпляр EngineService
func NewEngineService(eng *engine.Engine, logger zerolog.Logger) *EngineService {
	return &EngineService{
		engine: eng,
		logger: logger.With().Str("component", "engine_service").Logger(),
	}
}

// StartTrading запускает движок на указанных символах.
// Возвращает engine.ErrAlreadyRunning, если движок не в STOPPED.
func (s *EngineService) StartTrading(symbols []string) error {
	s.logger.Info().Strs("symbols", symbols).Msg("start requested via API")
	return s.engine.Start(symbols)
}

// StopTrading останавливает движок. Повторный вызов безопасен.
func (s *EngineService) StopTrading() error {
	s.logger.Info().Msg("stop requested via API")
	return s.engine.Stop()
}

// GetStatus возвращает текущее состояние движка
func (s *EngineService) GetStatus() engine.Status {
	return s.engine.Status()
}
