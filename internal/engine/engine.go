// Package engine содержит торговый движок: машину состояний,
// независимые циклы мониторинга по символам и отправку ордеров.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradebot/internal/exchange"
	"tradebot/internal/models"
	"tradebot/internal/risk"
	"tradebot/internal/signal"
	"tradebot/pkg/retry"
	"tradebot/pkg/utils"
)

// Ошибки управления движком
var (
	ErrAlreadyRunning = errors.New("engine is already running")
	ErrNoSymbols      = errors.New("symbol list is empty")
)

// SignalAggregator - источник агрегированных сигналов для входа
type SignalAggregator interface {
	Aggregate(ctx context.Context, symbol string) (*models.AggregatedSignal, error)
}

// Config - параметры движка
type Config struct {
	// Интервал опроса по каждому символу
	PollInterval time.Duration

	// Таймаут одного тика, чтобы зависший запрос не блокировал цикл
	TickTimeout time.Duration

	// Параметры retry для отправки ордеров
	OrderRetry retry.Config
}

// DefaultConfig возвращает параметры движка по умолчанию
func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		TickTimeout:  30 * time.Second,
		OrderRetry:   retry.OrderConfig(),
	}
}

// Hooks - необязательные обратные вызовы движка.
// Через них подключаются персистентность и мониторинг.
type Hooks struct {
	PositionOpened func(models.Position)
	TradeClosed    func(models.TradeRecord)
	OrderFailed    func(symbol string, err error)
}

// Status - снимок состояния движка, доступен в любом состоянии
type Status struct {
	State         State    `json:"state"`
	ActiveSymbols []string `json:"active_symbols"`
	OpenPositions int      `json:"open_position_count"`
}

// Engine связывает агрегатор сигналов, риск-менеджер и биржу.
// Каждый символ мониторится собственной горутиной: сбой одного
// символа не задерживает остальные.
type Engine struct {
	mu      sync.Mutex
	state   State
	symbols []string
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	exchange   exchange.Exchange
	aggregator SignalAggregator
	risk       *risk.Manager
	config     Config
	hooks      Hooks
	logger     zerolog.Logger
}

// New создаёт движок в состоянии STOPPED
func New(ex exchange.Exchange, agg SignalAggregator, rm *risk.Manager, cfg Config, logger zerolog.Logger) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = 30 * time.Second
	}
	e := &Engine{
		state:      StateStopped,
		exchange:   ex,
		aggregator: agg,
		risk:       rm,
		config:     cfg,
		logger:     logger.With().Str("component", "engine").Logger(),
	}
	recordState(e.state)
	return e
}

// SetHooks задаёт обратные вызовы. Вызывать до Start.
func (e *Engine) SetHooks(h Hooks) {
	e.hooks = h
}

// ============================================================
// Управление
// ============================================================

// Start запускает мониторинг списка символов.
// Допустим только из состояния STOPPED, иначе ErrAlreadyRunning.
func (e *Engine) Start(symbols []string) error {
	if err := utils.ValidateSymbols(symbols); err != nil {
		return fmt.Errorf("%w: %v", ErrNoSymbols, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateStopped {
		return fmt.Errorf("%w: state is %s", ErrAlreadyRunning, e.state)
	}
	e.setStateLocked(StateStarting)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.symbols = append([]string(nil), symbols...)

	for _, symbol := range e.symbols {
		e.wg.Add(1)
		go e.symbolLoop(ctx, symbol)
	}

	e.setStateLocked(StateRunning)
	e.logger.Info().Strs("symbols", e.symbols).Msg("engine started")
	return nil
}

// Stop останавливает движок кооперативно: циклы дорабатывают текущий
// тик и завершаются. No-op если движок уже остановлен или
// останавливается. Блокируется до полной остановки.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state == StateStopped || e.state == StateStopping {
		e.mu.Unlock()
		return nil
	}
	e.setStateLocked(StateStopping)
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()

	e.mu.Lock()
	e.setStateLocked(StateStopped)
	e.symbols = nil
	e.cancel = nil
	e.mu.Unlock()

	e.logger.Info().Msg("engine stopped")
	return nil
}

// Status возвращает снимок состояния, доступен в любом состоянии
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Status{
		State:         e.state,
		ActiveSymbols: append([]string(nil), e.symbols...),
		OpenPositions: len(e.risk.OpenPositions()),
	}
}

// State возвращает текущее состояние движка
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// setStateLocked переводит машину состояний. Вызывается под mu.
func (e *Engine) setStateLocked(to State) {
	if !CanTransition(e.state, to) {
		// Нарушение машины состояний - ошибка программирования
		e.logger.Error().
			Str("from", string(e.state)).
			Str("to", string(to)).
			Msg("invalid engine state transition")
		return
	}
	e.logger.Debug().Str("from", string(e.state)).Str("to", string(to)).Msg("engine state transition")
	e.state = to
	recordState(to)
}

// ============================================================
// Цикл символа
// ============================================================

// symbolLoop мониторит один символ до отмены контекста
func (e *Engine) symbolLoop(ctx context.Context, symbol string) {
	defer e.wg.Done()

	logger := e.logger.With().Str("symbol", symbol).Logger()
	logger.Info().Dur("interval", e.config.PollInterval).Msg("symbol loop started")

	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("symbol loop stopped")
			return
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, e.config.TickTimeout)
			err := e.tick(tickCtx, symbol)
			cancel()

			if err != nil {
				// Сбой тика изолирован: логируем и ждём следующий
				TicksProcessed.WithLabelValues(symbol, "error").Inc()
				logger.Warn().Err(err).Msg("tick failed")
			} else {
				TicksProcessed.WithLabelValues(symbol, "ok").Inc()
			}
		}
	}
}

// tick - одна итерация мониторинга символа.
// Проверка выходов выполняется строго до проверки входа.
func (e *Engine) tick(ctx context.Context, symbol string) error {
	price, err := e.exchange.GetPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("fetch price: %w", err)
	}

	if exits := e.risk.CheckExits(symbol, price); len(exits) > 0 {
		// Исполняем условие с наивысшим приоритетом
		return e.closePosition(ctx, symbol, exits[0])
	}

	if _, open := e.risk.Position(symbol); open {
		return nil
	}
	return e.tryEnter(ctx, symbol, price)
}

// tryEnter запрашивает сигнал и открывает позицию, если риск позволяет
func (e *Engine) tryEnter(ctx context.Context, symbol string, price float64) error {
	agg, err := e.aggregator.Aggregate(ctx, symbol)
	if err != nil {
		if errors.Is(err, signal.ErrNoSignalAvailable) {
			// Все источники отказали - трактуем как HOLD
			e.logger.Debug().Str("symbol", symbol).Msg("no signal available, holding")
			return nil
		}
		return fmt.Errorf("aggregate signals: %w", err)
	}
	if agg.Direction == models.DirectionHold {
		return nil
	}

	balance, err := e.exchange.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("fetch balance: %w", err)
	}

	step := e.exchange.MinQtyStep(symbol)
	quantity := e.risk.CalculatePositionSize(symbol, price, balance, step)
	if quantity <= 0 {
		return nil
	}

	side := models.SideFromDirection(agg.Direction)
	if ok, reason := e.risk.ValidateTrade(symbol, side, quantity, price, balance); !ok {
		// Отклонение - ожидаемый исход, не ошибка
		TradeRejects.WithLabelValues(symbol).Inc()
		e.logger.Debug().Str("symbol", symbol).Str("reason", reason).Msg("entry rejected")
		return nil
	}

	return e.openPosition(ctx, symbol, side, quantity, price)
}

// openPosition отправляет ордер на вход и регистрирует позицию
func (e *Engine) openPosition(ctx context.Context, symbol string, side models.Side, quantity, price float64) error {
	orderSide := exchange.SideBuy
	if side == models.SideShort {
		orderSide = exchange.SideSell
	}

	fill, err := e.submitOrder(ctx, symbol, orderSide, quantity)
	if err != nil {
		e.orderFailed(symbol, err)
		return fmt.Errorf("submit entry order: %w", err)
	}

	entryPrice := fill.Price
	if entryPrice <= 0 {
		entryPrice = price
	}
	entryTime := time.Now().UTC()
	deadline := entryTime.Add(e.risk.Config().MaxHoldingFor(symbol))

	pos := models.Position{
		Symbol:     symbol,
		Side:       side,
		EntryPrice: entryPrice,
		Quantity:   fill.Quantity,
		EntryTime:  entryTime,
		StopLoss:   e.risk.ComputeStopLoss(symbol, entryPrice, side),
		TakeProfit: e.risk.ComputeTakeProfit(symbol, entryPrice, side),
		Deadline:   &deadline,
	}

	if err := e.risk.RegisterPosition(pos); err != nil {
		// Позиция открыта на бирже, но таблица не приняла её -
		// каллер-ошибка, всплывает вместо проглатывания
		return fmt.Errorf("register position: %w", err)
	}

	TradesOpened.WithLabelValues(symbol, string(side)).Inc()
	OpenPositions.Set(float64(len(e.risk.OpenPositions())))

	e.logger.Info().
		Str("symbol", symbol).
		Str("side", string(side)).
		Float64("entry", entryPrice).
		Float64("quantity", fill.Quantity).
		Msg("position opened")

	if e.hooks.PositionOpened != nil {
		e.hooks.PositionOpened(pos)
	}
	return nil
}

// closePosition отправляет закрывающий ордер и фиксирует сделку.
// При неудаче позиция остаётся в таблице: условие выхода сработает
// снова на следующем тике.
func (e *Engine) closePosition(ctx context.Context, symbol string, exit models.ExitSignal) error {
	pos, ok := e.risk.Position(symbol)
	if !ok {
		return nil
	}

	orderSide := exchange.SideSell
	if pos.Side == models.SideShort {
		orderSide = exchange.SideBuy
	}

	fill, err := e.submitOrder(ctx, symbol, orderSide, pos.Quantity)
	if err != nil {
		e.orderFailed(symbol, err)
		return fmt.Errorf("submit exit order (%s): %w", exit.Reason, err)
	}

	exitPrice := fill.Price
	if exitPrice <= 0 {
		exitPrice = exit.Price
	}

	record, err := e.risk.RecordClose(symbol, exitPrice, exit.Reason)
	if err != nil {
		return fmt.Errorf("record close: %w", err)
	}

	TradesClosed.WithLabelValues(symbol, string(exit.Reason)).Inc()
	OpenPositions.Set(float64(len(e.risk.OpenPositions())))
	RealizedPnl.Add(record.Pnl)

	e.logger.Info().
		Str("symbol", symbol).
		Str("reason", string(exit.Reason)).
		Float64("exit_price", exitPrice).
		Float64("pnl", record.Pnl).
		Msg("position closed")

	if e.hooks.TradeClosed != nil {
		e.hooks.TradeClosed(record)
	}
	return nil
}

// submitOrder отправляет рыночный ордер с ограниченным retry.
// Повторяются только временные сбои биржи; нехватка средств
// терминальна для попытки.
func (e *Engine) submitOrder(ctx context.Context, symbol, side string, quantity float64) (*exchange.Fill, error) {
	cfg := e.config.OrderRetry
	cfg.RetryIf = exchange.IsRetryable
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		e.logger.Warn().
			Str("symbol", symbol).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("order submission retry")
	}

	return retry.DoWithResult(ctx, func() (*exchange.Fill, error) {
		return e.exchange.SubmitOrder(ctx, symbol, side, quantity, exchange.OrderTypeMarket)
	}, cfg)
}

// orderFailed фиксирует окончательный отказ отправки ордера
func (e *Engine) orderFailed(symbol string, err error) {
	OrderFailures.WithLabelValues(symbol).Inc()
	e.logger.Error().Str("symbol", symbol).Err(err).Msg("order failed after retries")
	if e.hooks.OrderFailed != nil {
		e.hooks.OrderFailed(symbol, err)
	}
}
