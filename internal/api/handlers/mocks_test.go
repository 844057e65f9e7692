package handlers

import (
	"time"

	"tradebot/internal/cache"
	"tradebot/internal/engine"
	"tradebot/internal/models"
	"tradebot/internal/service"
)

// ============================================================
// Mock services для тестов handlers
// ============================================================

type mockEngineService struct {
	startErr    error
	stopErr     error
	status      engine.Status
	startedWith []string
	stopCalls   int
}

func (m *mockEngineService) StartTrading(symbols []string) error {
	m.startedWith = symbols
	return m.startErr
}

func (m *mockEngineService) StopTrading() error {
	m.stopCalls++
	return m.stopErr
}

func (m *mockEngineService) GetStatus() engine.Status { return m.status }

var _ service.EngineServiceInterface = (*mockEngineService)(nil)

type mockRiskService struct {
	metrics   models.RiskMetrics
	allowed   bool
	reason    string
	positions []models.Position
	trades    []*models.TradeRecord
	tradesErr error

	planQty float64
	planSL  float64
	planTP  float64

	validated ValidateRequest
	planned   SizeRequest
	gotLimit  int
}

func (m *mockRiskService) GetMetrics() models.RiskMetrics { return m.metrics }

func (m *mockRiskService) ValidateTrade(symbol string, side models.Side, quantity, price, balance float64) (bool, string) {
	m.validated = ValidateRequest{Symbol: symbol, Side: string(side), Quantity: quantity, Price: price, Balance: balance}
	return m.allowed, m.reason
}

func (m *mockRiskService) PlanTrade(symbol string, side models.Side, entryPrice, balance, step float64) (float64, float64, float64) {
	m.planned = SizeRequest{Symbol: symbol, Side: string(side), EntryPrice: entryPrice, Balance: balance, Step: step}
	return m.planQty, m.planSL, m.planTP
}

func (m *mockRiskService) GetOpenPositions() []models.Position { return m.positions }

func (m *mockRiskService) GetTradeHistory(limit int) ([]*models.TradeRecord, error) {
	m.gotLimit = limit
	return m.trades, m.tradesErr
}

var _ service.RiskServiceInterface = (*mockRiskService)(nil)

type mockAlertService struct {
	alerts   []models.Alert
	level    models.RiskLevel
	gotSince time.Time
	gotLimit int
}

func (m *mockAlertService) GetAlerts(since time.Time, limit int) []models.Alert {
	m.gotSince = since
	m.gotLimit = limit
	return m.alerts
}

func (m *mockAlertService) CurrentLevel() models.RiskLevel { return m.level }

var _ service.AlertServiceInterface = (*mockAlertService)(nil)

type mockCacheService struct {
	stats   map[string]cache.Stats
	cleared int
}

func (m *mockCacheService) GetStats() map[string]cache.Stats { return m.stats }
func (m *mockCacheService) ClearAll() int                    { return m.cleared }

var _ service.CacheServiceInterface = (*mockCacheService)(nil)
