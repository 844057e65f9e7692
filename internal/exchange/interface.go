// Package exchange предоставляет интерфейс торгового ядра к бирже.
package exchange

import (
	"context"
	"errors"
	"time"

	"tradebot/internal/models"
)

// Exchange определяет операции биржи, которые использует торговое ядро
type Exchange interface {
	// GetPrice получает текущую цену символа
	GetPrice(ctx context.Context, symbol string) (float64, error)

	// GetOHLCV получает последние limit свечей указанного интервала
	GetOHLCV(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)

	// GetTopTraderRatio получает соотношение long/short позиций топ-трейдеров
	GetTopTraderRatio(ctx context.Context, symbol string) (float64, error)

	// SubmitOrder размещает ордер и возвращает подтверждённое исполнение
	SubmitOrder(ctx context.Context, symbol, side string, quantity float64, orderType string) (*Fill, error)

	// GetBalance получает доступный баланс фьючерсного аккаунта в USDT
	GetBalance(ctx context.Context) (float64, error)

	// MinQtyStep возвращает минимальный шаг объёма для символа.
	// 0 означает что шаг неизвестен, округление не применяется.
	MinQtyStep(symbol string) float64

	// Close закрывает соединения с биржей
	Close() error
}

// Fill представляет подтверждённое исполнение ордера
type Fill struct {
	OrderID   int64     `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Quantity  float64   `json:"quantity"` // исполненный объём
	Price     float64   `json:"price"`    // средняя цена исполнения
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Side constants for orders
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order type constants
const (
	OrderTypeMarket = "MARKET"
)

// Классификация ошибок биржи.
// ErrExchangeUnavailable - временная ошибка, допускает повтор.
// ErrInsufficientFunds - терминальная для текущей попытки, не повторяется.
var (
	ErrExchangeUnavailable = errors.New("exchange unavailable")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)

// ExchangeError представляет ошибку от биржи
type ExchangeError struct {
	Exchange string
	Code     int
	Message  string
	Original error // сентинел классификации или сетевая ошибка
}

func (e *ExchangeError) Error() string {
	return e.Exchange + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для errors.Is() и errors.As()
func (e *ExchangeError) Unwrap() error {
	return e.Original
}

// Retryable реализует retry.RetryableError: повторяем только
// временные ошибки биржи
func (e *ExchangeError) Retryable() bool {
	return errors.Is(e.Original, ErrExchangeUnavailable)
}

// IsRetryable сообщает, имеет ли смысл повторять операцию после ошибки
func IsRetryable(err error) bool {
	return errors.Is(err, ErrExchangeUnavailable)
}
