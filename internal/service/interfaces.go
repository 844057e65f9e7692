package service

import (
	"context"
	"time"

	"tradebot/internal/cache"
	"tradebot/internal/engine"
	"tradebot/internal/models"
	"tradebot/internal/repository"
)

// TradeRepositoryInterface определяет интерфейс репозитория сделок
type TradeRepositoryInterface interface {
	Create(trade *models.TradeRecord) error
	GetByID(id int) (*models.TradeRecord, error)
	GetRecent(limit int) ([]*models.TradeRecord, error)
	GetBySymbol(symbol string, limit int) ([]*models.TradeRecord, error)
	GetClosedSince(since time.Time) ([]*models.TradeRecord, error)
	SumPnlSince(since time.Time) (float64, error)
	Count() (int, error)
	DeleteOlderThan(timestamp time.Time) (int64, error)
}

// SignalRepositoryInterface определяет интерфейс репозитория сигналов
type SignalRepositoryInterface interface {
	Create(signal *models.Signal) error
	LatestSignal(ctx context.Context, symbol string, source models.SignalSource) (*models.Signal, error)
	GetRecent(symbol string, limit int) ([]*models.Signal, error)
	DeleteOlderThan(timestamp time.Time) (int64, error)
}

// AlertRepositoryInterface определяет интерфейс репозитория алертов
type AlertRepositoryInterface interface {
	Create(alert *models.Alert) error
	GetSince(since time.Time, limit int) ([]*models.Alert, error)
	DeleteOlderThan(timestamp time.Time) (int64, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ TradeRepositoryInterface = (*repository.TradeRepository)(nil)
var _ SignalRepositoryInterface = (*repository.SignalRepository)(nil)
var _ AlertRepositoryInterface = (*repository.AlertRepository)(nil)

// CacheStore - общая поверхность типизированных кэшей для сервиса.
// Любой *cache.Cache[V] её реализует.
type CacheStore interface {
	Stats() cache.Stats
	Clear()
}

// ============ Интерфейсы сервисов для Dependency Injection ============

// EngineServiceInterface определяет интерфейс сервиса движка
type EngineServiceInterface interface {
	StartTrading(symbols []string) error
	StopTrading() error
	GetStatus() engine.Status
}

// RiskServiceInterface определяет интерфейс риск-сервиса
type RiskServiceInterface interface {
	GetMetrics() models.RiskMetrics
	ValidateTrade(symbol string, side models.Side, quantity, price, balance float64) (bool, string)
	PlanTrade(symbol string, side models.Side, entryPrice, balance, step float64) (quantity, stopLoss, takeProfit float64)
	GetOpenPositions() []models.Position
	GetTradeHistory(limit int) ([]*models.TradeRecord, error)
}

// AlertServiceInterface определяет интерфейс сервиса алертов
type AlertServiceInterface interface {
	GetAlerts(since time.Time, limit int) []models.Alert
	CurrentLevel() models.RiskLevel
}

// CacheServiceInterface определяет интерфейс сервиса кэша
type CacheServiceInterface interface {
	GetStats() map[string]cache.Stats
	ClearAll() int
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ EngineServiceInterface = (*EngineService)(nil)
var _ RiskServiceInterface = (*RiskService)(nil)
var _ AlertServiceInterface = (*AlertService)(nil)
var _ CacheServiceInterface = (*CacheService)(nil)
