package service

import (
	"time"

	"github.com/rs/zerolog"

	"tradebot/internal/models"
	"tradebot/internal/monitoring"
)

// AlertService - доступ к истории алертов для HTTP слоя.
//
// Источник истины для горячей истории - монитор (in-memory, с
// вытеснением старых записей). БД хранит алерты дольше и пополняется
// монитором через sink, здесь она используется только для очистки.
type AlertService struct {
	monitor   *monitoring.Monitor
	alertRepo AlertRepositoryInterface
	logger    zerolog.Logger
}

// NewAlertService создает новый экземпляр AlertService
func NewAlertService(m *monitoring.Monitor, alertRepo AlertRepositoryInterface, logger zerolog.Logger) *AlertService {
	return &AlertService{
		monitor:   m,
		alertRepo: alertRepo,
		logger:    logger.With().Str("component", "alert_service").Logger(),
	}
}

// GetAlerts возвращает алерты не старше since, не больше limit штук.
// Новые последними, как их отдаёт монитор.
func (s *AlertService) GetAlerts(since time.Time, limit int) []models.Alert {
	alerts := s.monitor.Alerts(since)
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[len(alerts)-limit:]
	}
	return alerts
}

// CurrentLevel возвращает последний классифицированный уровень риска
func (s *AlertService) CurrentLevel() models.RiskLevel {
	return s.monitor.Level()
}

// CleanupOld удаляет из БД алерты старше указанной даты
func (s *AlertService) CleanupOld(olderThan time.Time) (int64, error) {
	if s.alertRepo == nil {
		return 0, nil
	}
	deleted, err := s.alertRepo.DeleteOlderThan(olderThan)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info().Int64("deleted", deleted).Msg("old alerts removed")
	}
	return deleted, nil
}
