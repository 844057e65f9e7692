// Package signal содержит источники торговых сигналов и их агрегацию.
package signal

import (
	"context"
	"errors"

	"tradebot/internal/models"
)

// Ошибки источников сигналов
var (
	// ErrNoSignalAvailable - все источники отказали, агрегация невозможна.
	// Движок трактует это как HOLD.
	ErrNoSignalAvailable = errors.New("no signal available")

	// ErrInsufficientData - данных недостаточно для расчёта (мало свечей,
	// нет свежей записи). Источник пропускается при агрегации.
	ErrInsufficientData = errors.New("insufficient data for signal")
)

// Provider - один независимый источник сигналов.
// Fetch возвращает сигнал по символу либо ошибку; отказавший источник
// не прерывает агрегацию остальных.
type Provider interface {
	Source() models.SignalSource
	Fetch(ctx context.Context, symbol string) (models.Signal, error)
}
