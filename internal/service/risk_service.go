package service

import (
	"time"

	"github.com/rs/zerolog"

	"tradebot/internal/models"
	"tradebot/internal/risk"
	"tradebot/pkg/utils"
)

// RiskService - чтение риск-состояния и предварительная проверка сделок.
//
// Сам риск-менеджер живёт внутри движка и мутируется только им.
// Сервис даёт HTTP слою доступ на чтение: метрики, открытые позиции,
// история сделок из БД, плюс dry-run валидацию гипотетической сделки
// той же цепочкой правил, что применяется при реальном входе.
type RiskService struct {
	risk      *risk.Manager
	tradeRepo TradeRepositoryInterface
	logger    zerolog.Logger
}

// NewRiskService создает новый экземпляр RiskService
func NewRiskService(rm *risk.Manager, tradeRepo TradeRepositoryInterface, logger zerolog.Logger) *RiskService {
	return &RiskService{
		risk:      rm,
		tradeRepo: tradeRepo,
		logger:    logger.With().Str("component", "risk_service").Logger(),
	}
}

// GetMetrics возвращает производные метрики риска
func (s *RiskService) GetMetrics() models.RiskMetrics {
	return s.risk.Metrics()
}

// ValidateTrade прогоняет гипотетическую сделку через цепочку правил.
// Состояние риск-менеджера не меняется.
func (s *RiskService) ValidateTrade(symbol string, side models.Side, quantity, price, balance float64) (bool, string) {
	return s.risk.ValidateTrade(symbol, side, quantity, price, balance)
}

// GetOpenPositions возвращает снимок открытых позиций
func (s *RiskService) GetOpenPositions() []models.Position {
	return s.risk.OpenPositions()
}

// PlanTrade рассчитывает объём позиции и защитные уровни для
// гипотетического входа. Шаг объёма step передаёт вызывающая сторона,
// 0 отключает округление.
func (s *RiskService) PlanTrade(symbol string, side models.Side, entryPrice, balance, step float64) (quantity, stopLoss, takeProfit float64) {
	quantity = s.risk.CalculatePositionSize(symbol, entryPrice, balance, step)
	stopLoss = s.risk.ComputeStopLoss(symbol, entryPrice, side)
	takeProfit = s.risk.ComputeTakeProfit(symbol, entryPrice, side)
	return quantity, stopLoss, takeProfit
}

// GetTradeHistory возвращает последние закрытые сделки из БД
func (s *RiskService) GetTradeHistory(limit int) ([]*models.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if s.tradeRepo == nil {
		return nil, nil
	}
	return s.tradeRepo.GetRecent(limit)
}

// RestoreLedger загружает в риск-менеджер сделки текущих суток UTC.
// Вызывается один раз при старте, чтобы дневной лимит убытка
// переживал рестарт процесса.
func (s *RiskService) RestoreLedger() error {
	if s.tradeRepo == nil {
		return nil
	}

	dayStart := utils.GetDayStartFrom(time.Now().UTC())
	trades, err := s.tradeRepo.GetClosedSince(dayStart)
	if err != nil {
		return err
	}

	records := make([]models.TradeRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, *t)
	}
	s.risk.RestoreLedger(records)

	s.logger.Info().Int("trades", len(records)).Time("day_start", dayStart).Msg("risk ledger restored")
	return nil
}
