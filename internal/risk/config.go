// Package risk содержит конфигурацию рисков, валидацию сделок,
// таблицу открытых позиций и расчёт риск-метрик.
package risk

import (
	"fmt"
	"time"
)

// OverrideKey адресует переопределение для пары символ+таймфрейм
type OverrideKey struct {
	Symbol    string
	Timeframe string
}

// Override переопределяет часть лимитов профиля.
// Нулевое значение поля означает "не задано, взять уровнем ниже".
type Override struct {
	MaxPositionSize float64
	StopLossPct     float64
	TakeProfitPct   float64
	MaxHolding      time.Duration
}

// Config - неизменяемый профиль рисков. Загружается один раз на старте;
// смена профиля - создание нового экземпляра, не мутация.
type Config struct {
	Profile string

	// Лимиты на позиции (quote-валюта)
	MaxPositionSize  float64
	MaxTotalExposure float64
	MaxPositions     int

	// Лимиты на убытки
	MaxDailyLoss   float64
	MaxDrawdownPct float64
	StopLossPct    float64
	TakeProfitPct  float64

	// Доля баланса, рискуемая в одной сделке
	RiskPerTradePct float64

	// Временные лимиты
	MaxHolding      time.Duration
	MinTradeSpacing time.Duration

	// Рабочий таймфрейм движка, участвует в разрешении переопределений
	Timeframe string

	// Переопределения. Приоритет: символ+таймфрейм > символ > профиль.
	SymbolOverrides          map[string]Override
	SymbolTimeframeOverrides map[OverrideKey]Override
}

// DefaultConfig возвращает базовый профиль
func DefaultConfig() Config {
	return Config{
		Profile:          "default",
		MaxPositionSize:  1000,
		MaxTotalExposure: 5000,
		MaxPositions:     5,
		MaxDailyLoss:     200,
		MaxDrawdownPct:   10,
		StopLossPct:      5,
		TakeProfitPct:    10,
		RiskPerTradePct:  2,
		MaxHolding:       24 * time.Hour,
		MinTradeSpacing:  30 * time.Minute,
	}
}

// ConservativeConfig возвращает профиль с пониженным риском
func ConservativeConfig() Config {
	return Config{
		Profile:          "conservative",
		MaxPositionSize:  500,
		MaxTotalExposure: 2500,
		MaxPositions:     3,
		MaxDailyLoss:     100,
		MaxDrawdownPct:   5,
		StopLossPct:      3,
		TakeProfitPct:    6,
		RiskPerTradePct:  1,
		MaxHolding:       12 * time.Hour,
		MinTradeSpacing:  time.Hour,
	}
}

// AggressiveConfig возвращает профиль с повышенным риском
func AggressiveConfig() Config {
	return Config{
		Profile:          "aggressive",
		MaxPositionSize:  2000,
		MaxTotalExposure: 10000,
		MaxPositions:     8,
		MaxDailyLoss:     400,
		MaxDrawdownPct:   15,
		StopLossPct:      7,
		TakeProfitPct:    15,
		RiskPerTradePct:  3,
		MaxHolding:       48 * time.Hour,
		MinTradeSpacing:  15 * time.Minute,
	}
}

// ConfigForProfile возвращает профиль по имени, по умолчанию default
func ConfigForProfile(name string) Config {
	switch name {
	case "conservative":
		return ConservativeConfig()
	case "aggressive":
		return AggressiveConfig()
	default:
		return DefaultConfig()
	}
}

// Validate проверяет диапазоны и логическую согласованность профиля.
// Ошибка фатальна на старте.
func (c Config) Validate() error {
	if c.MaxPositionSize <= 0 {
		return fmt.Errorf("max position size must be positive, got %f", c.MaxPositionSize)
	}
	if c.MaxTotalExposure <= 0 {
		return fmt.Errorf("max total exposure must be positive, got %f", c.MaxTotalExposure)
	}
	if c.MaxPositionSize > c.MaxTotalExposure {
		return fmt.Errorf("max position size %f exceeds max total exposure %f", c.MaxPositionSize, c.MaxTotalExposure)
	}
	if c.MaxPositions < 1 {
		return fmt.Errorf("max positions must be at least 1, got %d", c.MaxPositions)
	}
	if c.MaxDailyLoss <= 0 {
		return fmt.Errorf("max daily loss must be positive, got %f", c.MaxDailyLoss)
	}
	if c.MaxDrawdownPct <= 0 || c.MaxDrawdownPct > 100 {
		return fmt.Errorf("max drawdown must be in (0, 100], got %f", c.MaxDrawdownPct)
	}
	if c.StopLossPct <= 0 || c.StopLossPct > 50 {
		return fmt.Errorf("stop loss percent must be in (0, 50], got %f", c.StopLossPct)
	}
	if c.TakeProfitPct <= 0 || c.TakeProfitPct > 100 {
		return fmt.Errorf("take profit percent must be in (0, 100], got %f", c.TakeProfitPct)
	}
	if c.StopLossPct >= c.TakeProfitPct {
		return fmt.Errorf("stop loss %f must be below take profit %f", c.StopLossPct, c.TakeProfitPct)
	}
	if c.RiskPerTradePct <= 0 || c.RiskPerTradePct > 10 {
		return fmt.Errorf("risk per trade must be in (0, 10], got %f", c.RiskPerTradePct)
	}
	if c.MaxHolding <= 0 {
		return fmt.Errorf("max holding must be positive, got %s", c.MaxHolding)
	}
	if c.MinTradeSpacing <= 0 {
		return fmt.Errorf("min trade spacing must be positive, got %s", c.MinTradeSpacing)
	}
	return nil
}

// ============================================================
// Разрешение переопределений
// ============================================================

func (c Config) resolve(symbol string, pick func(Override) float64, fallback float64) float64 {
	if o, ok := c.SymbolTimeframeOverrides[OverrideKey{Symbol: symbol, Timeframe: c.Timeframe}]; ok {
		if v := pick(o); v > 0 {
			return v
		}
	}
	if o, ok := c.SymbolOverrides[symbol]; ok {
		if v := pick(o); v > 0 {
			return v
		}
	}
	return fallback
}

// MaxPositionSizeFor возвращает лимит позиции для символа
func (c Config) MaxPositionSizeFor(symbol string) float64 {
	return c.resolve(symbol, func(o Override) float64 { return o.MaxPositionSize }, c.MaxPositionSize)
}

// StopLossPctFor возвращает процент стоп-лосса для символа
func (c Config) StopLossPctFor(symbol string) float64 {
	return c.resolve(symbol, func(o Override) float64 { return o.StopLossPct }, c.StopLossPct)
}

// TakeProfitPctFor возвращает процент тейк-профита для символа
func (c Config) TakeProfitPctFor(symbol string) float64 {
	return c.resolve(symbol, func(o Override) float64 { return o.TakeProfitPct }, c.TakeProfitPct)
}

// MaxHoldingFor возвращает максимальное время удержания для символа
func (c Config) MaxHoldingFor(symbol string) time.Duration {
	if o, ok := c.SymbolTimeframeOverrides[OverrideKey{Symbol: symbol, Timeframe: c.Timeframe}]; ok && o.MaxHolding > 0 {
		return o.MaxHolding
	}
	if o, ok := c.SymbolOverrides[symbol]; ok && o.MaxHolding > 0 {
		return o.MaxHolding
	}
	return c.MaxHolding
}
