package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tradebot/internal/cache"
	"tradebot/internal/exchange"
	"tradebot/internal/models"
	"tradebot/pkg/utils"
)

// Пороги перевеса позиций топ-трейдеров.
// Соотношение long/short: > 1 перевес long, < 1 перевес short.
const (
	smartMoneyBuyRatio  = 1.2
	smartMoneySellRatio = 0.8
)

// SmartMoneyProvider строит сигнал по позициям топ-трейдеров биржи.
// Значимый перевес long даёт BUY, перевес short - SELL.
type SmartMoneyProvider struct {
	exchange exchange.Exchange
	cache    *cache.Cache[models.Signal]
	ttl      time.Duration
	logger   zerolog.Logger
}

var _ Provider = (*SmartMoneyProvider)(nil)

// NewSmartMoneyProvider создаёт источник по топ-трейдерам
func NewSmartMoneyProvider(ex exchange.Exchange, c *cache.Cache[models.Signal], ttl time.Duration, logger zerolog.Logger) *SmartMoneyProvider {
	return &SmartMoneyProvider{
		exchange: ex,
		cache:    c,
		ttl:      ttl,
		logger:   logger.With().Str("provider", "smart_money").Logger(),
	}
}

func (p *SmartMoneyProvider) Source() models.SignalSource {
	return models.SourceSmartMoney
}

func (p *SmartMoneyProvider) Fetch(ctx context.Context, symbol string) (models.Signal, error) {
	key := "signal:smart_money:" + symbol
	return p.cache.GetOrCompute(ctx, key, p.ttl, func(ctx context.Context) (models.Signal, error) {
		return p.compute(ctx, symbol)
	})
}

func (p *SmartMoneyProvider) compute(ctx context.Context, symbol string) (models.Signal, error) {
	ratio, err := p.exchange.GetTopTraderRatio(ctx, symbol)
	if err != nil {
		return models.Signal{}, fmt.Errorf("fetch top trader ratio: %w", err)
	}
	if ratio <= 0 {
		return models.Signal{}, fmt.Errorf("%w: non-positive ratio %.4f", ErrInsufficientData, ratio)
	}

	direction := models.DirectionHold
	switch {
	case ratio >= smartMoneyBuyRatio:
		direction = models.DirectionBuy
	case ratio <= smartMoneySellRatio:
		direction = models.DirectionSell
	}

	// Уверенность растёт с отклонением от паритета
	confidence := utils.Clamp(utils.Abs(ratio-1), 0, 1)

	p.logger.Debug().
		Str("symbol", symbol).
		Float64("ratio", ratio).
		Str("direction", string(direction)).
		Msg("smart money signal computed")

	return models.Signal{
		Symbol:     symbol,
		Direction:  direction,
		Confidence: confidence,
		Source:     models.SourceSmartMoney,
		Timestamp:  time.Now().UTC(),
	}, nil
}
