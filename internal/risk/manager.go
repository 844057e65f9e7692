package risk

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradebot/internal/models"
	"tradebot/pkg/utils"
)

// Ошибки таблицы позиций. Возникают при неверном использовании
// со стороны вызывающего, не проглатываются.
var (
	ErrDuplicatePosition = errors.New("position already exists for symbol")
	ErrPositionNotFound  = errors.New("no open position for symbol")
)

// Manager владеет таблицей открытых позиций (не больше одной на символ),
// журналом закрытых сделок и временем последней сделки по символу.
// Все мутации сериализованы одним мьютексом; метрики считаются
// по снимку под тем же мьютексом.
type Manager struct {
	mu sync.Mutex

	config    Config
	rules     []Rule
	positions map[string]*models.Position
	ledger    []models.TradeRecord
	lastTrade map[string]time.Time

	logger zerolog.Logger

	// Подменяется в тестах
	now func() time.Time
}

// NewManager создаёт менеджер рисков с валидацией профиля
func NewManager(cfg Config, logger zerolog.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("risk config: %w", err)
	}
	return &Manager{
		config:    cfg,
		rules:     defaultRules(),
		positions: make(map[string]*models.Position),
		lastTrade: make(map[string]time.Time),
		logger:    logger.With().Str("component", "risk").Logger(),
		now:       time.Now,
	}, nil
}

// Config возвращает действующий профиль
func (m *Manager) Config() Config {
	return m.config
}

// AddRule добавляет правило в конец цепочки валидации
func (m *Manager) AddRule(r Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, r)
}

// ============================================================
// Валидация и расчёт размера
// ============================================================

// ValidateTrade прогоняет сделку через цепочку правил.
// Возвращает первое отклонение с причиной; отклонение - ожидаемый
// исход, не ошибка.
func (m *Manager) ValidateTrade(symbol string, side models.Side, quantity, price, balance float64) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req := TradeRequest{
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		Balance:  balance,
	}
	st := m.stateLocked(symbol)

	for _, rule := range m.rules {
		if ok, reason := rule.Check(req, m.config, st); !ok {
			m.logger.Debug().
				Str("symbol", symbol).
				Str("rule", rule.Name()).
				Str("reason", reason).
				Msg("trade rejected")
			return false, reason
		}
	}
	return true, ""
}

// CalculatePositionSize возвращает количество, чей notional не превысит
// ни лимит позиции, ни долю баланса на сделку, ни остаток экспозиции.
// step - минимальный шаг количества биржи, 0 означает без округления.
// Согласован с ValidateTrade: рассчитанный размер проходит его
// числовые проверки.
func (m *Manager) CalculatePositionSize(symbol string, entryPrice, balance, step float64) float64 {
	if entryPrice <= 0 || balance <= 0 {
		return 0
	}

	m.mu.Lock()
	exposure := m.exposureLocked()
	m.mu.Unlock()

	notional := balance * m.config.RiskPerTradePct / 100
	notional = utils.Min(notional, m.config.MaxPositionSizeFor(symbol))
	notional = utils.Min(notional, m.config.MaxTotalExposure-exposure)
	notional = utils.Min(notional, balance)
	if notional <= 0 {
		return 0
	}

	return utils.RoundToLotSize(notional/entryPrice, step)
}

// ============================================================
// Стоп-лосс и тейк-профит
// ============================================================

// ComputeStopLoss возвращает цену стоп-лосса: entry*(1-pct/100) для
// long, зеркально для short. Процент разрешается по приоритету
// символ+таймфрейм > символ > профиль.
func (m *Manager) ComputeStopLoss(symbol string, entryPrice float64, side models.Side) float64 {
	pct := m.config.StopLossPctFor(symbol) / 100
	if side == models.SideShort {
		return entryPrice * (1 + pct)
	}
	return entryPrice * (1 - pct)
}

// ComputeTakeProfit возвращает цену тейк-профита, зеркально стоп-лоссу
func (m *Manager) ComputeTakeProfit(symbol string, entryPrice float64, side models.Side) float64 {
	pct := m.config.TakeProfitPctFor(symbol) / 100
	if side == models.SideShort {
		return entryPrice * (1 - pct)
	}
	return entryPrice * (1 + pct)
}

// ============================================================
// Таблица позиций
// ============================================================

// RegisterPosition добавляет позицию в таблицу.
// Повторная регистрация символа - ошибка вызывающего.
func (m *Manager) RegisterPosition(pos models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.positions[pos.Symbol]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePosition, pos.Symbol)
	}

	p := pos
	m.positions[pos.Symbol] = &p
	m.lastTrade[pos.Symbol] = m.now()

	m.logger.Info().
		Str("symbol", pos.Symbol).
		Str("side", string(pos.Side)).
		Float64("entry", pos.EntryPrice).
		Float64("quantity", pos.Quantity).
		Float64("stop_loss", pos.StopLoss).
		Float64("take_profit", pos.TakeProfit).
		Msg("position registered")
	return nil
}

// RemovePosition убирает позицию из таблицы без записи в журнал.
// Для штатного закрытия с учётом P&L см. RecordClose.
func (m *Manager) RemovePosition(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.positions[symbol]; !exists {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, symbol)
	}
	delete(m.positions, symbol)
	return nil
}

// Position возвращает копию открытой позиции по символу
func (m *Manager) Position(symbol string) (models.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return models.Position{}, false
	}
	return *pos, true
}

// OpenPositions возвращает копии всех открытых позиций
func (m *Manager) OpenPositions() []models.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, *pos)
	}
	return out
}

// ============================================================
// Проверка выходов
// ============================================================

// CheckExits возвращает все сработавшие условия выхода для позиции
// по символу, в порядке приоритета STOP_LOSS > TIME_EXIT > TAKE_PROFIT.
// Не мутирует состояние: повторный вызов с той же ценой даёт тот же
// результат. Решение об исполнении за вызывающим.
func (m *Manager) CheckExits(symbol string, currentPrice float64) []models.ExitSignal {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return nil
	}

	now := m.now()
	var signals []models.ExitSignal
	emit := func(reason models.ExitReason) {
		signals = append(signals, models.ExitSignal{
			Symbol:    symbol,
			Reason:    reason,
			Price:     currentPrice,
			Timestamp: now,
		})
	}

	if pos.Side == models.SideLong {
		if currentPrice <= pos.StopLoss {
			emit(models.ExitStopLoss)
		}
		if currentPrice >= pos.TakeProfit {
			emit(models.ExitTakeProfit)
		}
	} else {
		if currentPrice >= pos.StopLoss {
			emit(models.ExitStopLoss)
		}
		if currentPrice <= pos.TakeProfit {
			emit(models.ExitTakeProfit)
		}
	}

	if pos.Deadline != nil && now.After(*pos.Deadline) {
		emit(models.ExitTimeExit)
	}

	sort.Slice(signals, func(i, j int) bool {
		return signals[i].Reason.Priority() < signals[j].Reason.Priority()
	})
	return signals
}

// ============================================================
// Журнал сделок
// ============================================================

// RecordClose закрывает позицию: атомарно дописывает сделку в журнал
// и убирает позицию из таблицы. Возвращает запись журнала.
func (m *Manager) RecordClose(symbol string, exitPrice float64, reason models.ExitReason) (models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return models.TradeRecord{}, fmt.Errorf("%w: %s", ErrPositionNotFound, symbol)
	}

	now := m.now()
	record := models.TradeRecord{
		Symbol:     symbol,
		Side:       pos.Side,
		Quantity:   pos.Quantity,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Pnl:        pos.UnrealizedPnl(exitPrice),
		ExitReason: reason,
		OpenedAt:   pos.EntryTime,
		ClosedAt:   now,
	}

	m.ledger = append(m.ledger, record)
	delete(m.positions, symbol)
	m.lastTrade[symbol] = now

	m.logger.Info().
		Str("symbol", symbol).
		Str("reason", string(reason)).
		Float64("exit_price", exitPrice).
		Float64("pnl", record.Pnl).
		Msg("position closed")
	return record, nil
}

// RestoreLedger загружает ранее закрытые сделки, например из БД при
// рестарте, чтобы дневной P&L и метрики пережили перезапуск
func (m *Manager) RestoreLedger(trades []models.TradeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger = append(m.ledger, trades...)
}

// ============================================================
// Внутреннее состояние
// ============================================================

// stateLocked собирает снимок для цепочки правил. Вызывается под mu.
func (m *Manager) stateLocked(symbol string) State {
	_, hasPos := m.positions[symbol]
	return State{
		Exposure:      m.exposureLocked(),
		OpenPositions: len(m.positions),
		HasPosition:   hasPos,
		DailyPnl:      m.dailyPnlLocked(),
		LastTrade:     m.lastTrade[symbol],
		Now:           m.now(),
	}
}

// exposureLocked пересчитывает сумму notional открытых позиций
func (m *Manager) exposureLocked() float64 {
	var total float64
	for _, pos := range m.positions {
		total += pos.Notional()
	}
	return total
}

// dailyPnlLocked суммирует P&L сделок, закрытых с начала суток UTC
func (m *Manager) dailyPnlLocked() float64 {
	dayStart := utils.GetDayStartFrom(m.now())
	var total float64
	for _, trade := range m.ledger {
		if !trade.ClosedAt.Before(dayStart) {
			total += trade.Pnl
		}
	}
	return total
}
