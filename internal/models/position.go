package models

import "time"

// Side представляет сторону позиции
type Side string

// Стороны позиции
const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// SideFromDirection переводит направление сигнала в сторону позиции.
// HOLD не открывает позицию, возвращается пустая сторона.
func SideFromDirection(d Direction) Side {
	switch d {
	case DirectionBuy:
		return SideLong
	case DirectionSell:
		return SideShort
	default:
		return ""
	}
}

// Position представляет одну открытую позицию.
// Таблица позиций принадлежит риск-менеджеру: не более одной позиции на символ.
type Position struct {
	Symbol     string     `json:"symbol"`
	Side       Side       `json:"side"`
	EntryPrice float64    `json:"entry_price"`
	Quantity   float64    `json:"quantity"`
	EntryTime  time.Time  `json:"entry_time"`
	StopLoss   float64    `json:"stop_loss"`
	TakeProfit float64    `json:"take_profit"`
	Deadline   *time.Time `json:"deadline,omitempty"` // максимальное время удержания
}

// Notional возвращает денежный размер позиции в котируемой валюте
func (p *Position) Notional() float64 {
	return p.EntryPrice * p.Quantity
}

// UnrealizedPnl возвращает нереализованный PNL по текущей цене
func (p *Position) UnrealizedPnl(currentPrice float64) float64 {
	if p.Side == SideShort {
		return (p.EntryPrice - currentPrice) * p.Quantity
	}
	return (currentPrice - p.EntryPrice) * p.Quantity
}

// ExitReason представляет причину закрытия позиции
type ExitReason string

// Причины выхода в порядке убывания приоритета
const (
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTimeExit   ExitReason = "TIME_EXIT"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
)

// Priority возвращает приоритет причины: меньше значение - раньше исполняется
func (r ExitReason) Priority() int {
	switch r {
	case ExitStopLoss:
		return 0
	case ExitTimeExit:
		return 1
	case ExitTakeProfit:
		return 2
	default:
		return 3
	}
}

// ExitSignal представляет вычисленную причину закрыть открытую позицию
type ExitSignal struct {
	Symbol    string     `json:"symbol"`
	Reason    ExitReason `json:"reason"`
	Price     float64    `json:"price"` // цена на момент проверки
	Timestamp time.Time  `json:"timestamp"`
}
