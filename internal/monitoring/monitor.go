// Package monitoring периодически снимает риск-метрики и состояние
// движка, классифицирует уровень риска и рассылает алерты.
package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradebot/internal/engine"
	"tradebot/internal/models"
	"tradebot/internal/risk"
)

// Пороги классификации: доля от настроенного лимита
const (
	mediumFraction   = 0.5
	highFraction     = 0.7
	criticalFraction = 0.9
)

// AlertSink доставляет алерт во внешний канал: telegram, websocket, БД.
// Сбой доставки логируется и никогда не валит мониторинг.
type AlertSink interface {
	Send(alert models.Alert) error
}

// Config - параметры мониторинга
type Config struct {
	// Интервал опроса метрик
	Interval time.Duration

	// Максимум алертов в истории, старые вытесняются
	HistoryLimit int

	// Потолок исходящих алертов в час; история ведётся без ограничений
	MaxAlertsPerHour int
}

// DefaultConfig возвращает параметры мониторинга по умолчанию
func DefaultConfig() Config {
	return Config{
		Interval:         30 * time.Second,
		HistoryLimit:     500,
		MaxAlertsPerHour: 20,
	}
}

// Monitor читает риск-менеджер и движок, сам ничего не мутирует
type Monitor struct {
	mu        sync.Mutex
	risk      *risk.Manager
	engine    *engine.Engine
	sinks     []AlertSink
	history   []models.Alert
	lastLevel models.RiskLevel
	prevState engine.State
	sent      []time.Time // времена отправок для часового потолка
	nextID    int

	config Config
	logger zerolog.Logger

	// Подменяется в тестах
	now func() time.Time
}

// New создаёт монитор поверх риск-менеджера и движка
func New(rm *risk.Manager, eng *engine.Engine, cfg Config, logger zerolog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 500
	}
	return &Monitor{
		risk:      rm,
		engine:    eng,
		lastLevel: models.RiskLow,
		prevState: engine.StateStopped,
		config:    cfg,
		logger:    logger.With().Str("component", "monitoring").Logger(),
		now:       time.Now,
	}
}

// AddSink регистрирует канал доставки алертов
func (m *Monitor) AddSink(s AlertSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

// Start запускает периодический опрос до отмены контекста
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				m.logger.Info().Msg("monitoring stopped")
				return
			case <-ticker.C:
				m.Sample()
			}
		}
	}()
}

// Sample снимает метрики один раз: классифицирует уровень риска
// и проверяет неожиданную остановку движка
func (m *Monitor) Sample() {
	metrics := m.risk.Metrics()
	status := m.engine.Status()
	level := Classify(metrics, m.risk.Config())

	m.mu.Lock()
	levelUp := level.Rank() > m.lastLevel.Rank()
	m.lastLevel = level

	unexpectedStop := m.prevState == engine.StateRunning &&
		status.State != engine.StateRunning &&
		status.State != engine.StateStopping &&
		len(status.ActiveSymbols) > 0
	m.prevState = status.State
	m.mu.Unlock()

	if levelUp {
		m.Emit(level, models.AlertTypeRiskLevel,
			fmt.Sprintf("risk level raised to %s: exposure %.2f, daily pnl %.2f, drawdown %.2f%%",
				level, metrics.TotalExposure, metrics.DailyPnl, metrics.MaxDrawdown),
			map[string]interface{}{
				"exposure":  metrics.TotalExposure,
				"daily_pnl": metrics.DailyPnl,
				"drawdown":  metrics.MaxDrawdown,
			})
	}

	if unexpectedStop {
		m.Emit(models.RiskCritical, models.AlertTypeEngineStopped,
			fmt.Sprintf("engine left RUNNING unexpectedly, state %s with %d symbols configured",
				status.State, len(status.ActiveSymbols)),
			map[string]interface{}{"state": string(status.State)})
	}
}

// OrderFailureAlert - hook для движка: ордер не прошёл после всех retry
func (m *Monitor) OrderFailureAlert(symbol string, err error) {
	m.Emit(models.RiskHigh, models.AlertTypeOrderFailed,
		fmt.Sprintf("order submission failed for %s: %v", symbol, err),
		map[string]interface{}{"symbol": symbol, "error": err.Error()})
}

// Level возвращает последний классифицированный уровень риска
func (m *Monitor) Level() models.RiskLevel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLevel
}

// Alerts возвращает алерты из истории не старше since
func (m *Monitor) Alerts(since time.Time) []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Alert
	for _, a := range m.history {
		if !a.Timestamp.Before(since) {
			out = append(out, a)
		}
	}
	return out
}

// Emit добавляет алерт в историю и рассылает его по каналам.
// История ограничена по размеру, исходящие - часовым потолком.
func (m *Monitor) Emit(level models.RiskLevel, alertType, message string, meta map[string]interface{}) {
	m.mu.Lock()
	m.nextID++
	alert := models.Alert{
		ID:        m.nextID,
		Level:     level,
		Type:      alertType,
		Message:   message,
		Timestamp: m.now(),
		Meta:      meta,
	}

	m.history = append(m.history, alert)
	if len(m.history) > m.config.HistoryLimit {
		m.history = m.history[len(m.history)-m.config.HistoryLimit:]
	}

	forward := m.allowSendLocked(alert.Timestamp)
	sinks := append([]AlertSink(nil), m.sinks...)
	m.mu.Unlock()

	m.logger.Warn().
		Str("level", string(level)).
		Str("type", alertType).
		Str("message", message).
		Msg("alert raised")

	if !forward {
		m.logger.Warn().Str("type", alertType).Msg("alert rate cap reached, not forwarding")
		return
	}

	for _, sink := range sinks {
		if err := sink.Send(alert); err != nil {
			// Сбой канала не фатален для мониторинга
			m.logger.Warn().Err(err).Msg("alert sink failed")
		}
	}
}

// allowSendLocked проверяет часовой потолок исходящих. Вызывается под mu.
func (m *Monitor) allowSendLocked(now time.Time) bool {
	if m.config.MaxAlertsPerHour <= 0 {
		return true
	}

	cutoff := now.Add(-time.Hour)
	kept := m.sent[:0]
	for _, t := range m.sent {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	m.sent = kept

	if len(m.sent) >= m.config.MaxAlertsPerHour {
		return false
	}
	m.sent = append(m.sent, now)
	return true
}

// Classify выводит уровень риска из метрик: берётся наибольшая из
// долей использования лимитов экспозиции, дневного убытка и просадки
func Classify(metrics models.RiskMetrics, cfg risk.Config) models.RiskLevel {
	var worst float64

	if cfg.MaxTotalExposure > 0 {
		worst = metrics.TotalExposure / cfg.MaxTotalExposure
	}
	if cfg.MaxDailyLoss > 0 && metrics.DailyPnl < 0 {
		if f := -metrics.DailyPnl / cfg.MaxDailyLoss; f > worst {
			worst = f
		}
	}
	if cfg.MaxDrawdownPct > 0 {
		if f := metrics.MaxDrawdown / cfg.MaxDrawdownPct; f > worst {
			worst = f
		}
	}

	switch {
	case worst >= criticalFraction:
		return models.RiskCritical
	case worst >= highFraction:
		return models.RiskHigh
	case worst >= mediumFraction:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
