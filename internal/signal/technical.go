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

// Параметры индикаторов
const (
	rsiPeriod     = 14
	emaFastPeriod = 12
	emaSlowPeriod = 26
	macdSignalLen = 9

	rsiOversold   = 30
	rsiOverbought = 70

	// Минимум свечей: медленная EMA + сигнальная линия MACD
	minCandles = emaSlowPeriod + macdSignalLen
)

// TechnicalProvider строит сигнал по техническим индикаторам:
// RSI, пересечение быстрой/медленной EMA и гистограмма MACD
// голосуют независимо, итог определяется большинством.
type TechnicalProvider struct {
	exchange exchange.Exchange
	cache    *cache.Cache[models.Signal]
	ttl      time.Duration
	interval string // интервал свечей (1m, 5m, 1h...)
	limit    int    // количество запрашиваемых свечей
	logger   zerolog.Logger
}

var _ Provider = (*TechnicalProvider)(nil)

// NewTechnicalProvider создаёт технический источник.
// OHLCV обновляется часто, поэтому TTL у него короткий.
func NewTechnicalProvider(ex exchange.Exchange, c *cache.Cache[models.Signal], ttl time.Duration, interval string, limit int, logger zerolog.Logger) *TechnicalProvider {
	if limit < minCandles {
		limit = 100
	}
	return &TechnicalProvider{
		exchange: ex,
		cache:    c,
		ttl:      ttl,
		interval: interval,
		limit:    limit,
		logger:   logger.With().Str("provider", "technical").Logger(),
	}
}

func (p *TechnicalProvider) Source() models.SignalSource {
	return models.SourceTechnical
}

func (p *TechnicalProvider) Fetch(ctx context.Context, symbol string) (models.Signal, error) {
	key := "signal:technical:" + symbol
	return p.cache.GetOrCompute(ctx, key, p.ttl, func(ctx context.Context) (models.Signal, error) {
		return p.compute(ctx, symbol)
	})
}

func (p *TechnicalProvider) compute(ctx context.Context, symbol string) (models.Signal, error) {
	candles, err := p.exchange.GetOHLCV(ctx, symbol, p.interval, p.limit)
	if err != nil {
		return models.Signal{}, fmt.Errorf("fetch ohlcv: %w", err)
	}
	if len(candles) < minCandles {
		return models.Signal{}, fmt.Errorf("%w: got %d candles, need %d", ErrInsufficientData, len(candles), minCandles)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	var buyVotes, sellVotes int

	// RSI: перепроданность - покупка, перекупленность - продажа
	rsi := RSI(closes, rsiPeriod)
	switch {
	case rsi < rsiOversold:
		buyVotes++
	case rsi > rsiOverbought:
		sellVotes++
	}

	// Пересечение EMA: быстрая выше медленной - восходящий тренд
	emaFast := EMA(closes, emaFastPeriod)
	emaSlow := EMA(closes, emaSlowPeriod)
	if emaFast > emaSlow {
		buyVotes++
	} else if emaFast < emaSlow {
		sellVotes++
	}

	// Гистограмма MACD: знак разницы MACD и сигнальной линии
	macdHist := MACDHistogram(closes)
	if macdHist > 0 {
		buyVotes++
	} else if macdHist < 0 {
		sellVotes++
	}

	direction := models.DirectionHold
	if buyVotes > sellVotes {
		direction = models.DirectionBuy
	} else if sellVotes > buyVotes {
		direction = models.DirectionSell
	}

	confidence := utils.Abs(float64(buyVotes-sellVotes)) / 3

	p.logger.Debug().
		Str("symbol", symbol).
		Float64("rsi", rsi).
		Float64("macd_hist", macdHist).
		Int("buy_votes", buyVotes).
		Int("sell_votes", sellVotes).
		Msg("technical signal computed")

	return models.Signal{
		Symbol:     symbol,
		Direction:  direction,
		Confidence: confidence,
		Source:     models.SourceTechnical,
		Timestamp:  time.Now().UTC(),
	}, nil
}

// ============ Индикаторы ============

// RSI возвращает Relative Strength Index по последним period приращениям.
// Значение в [0, 100]; 50 при недостатке данных.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}

	var gains, losses float64
	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 50
		}
		return 100
	}

	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - 100/(1+rs)
}

// EMA возвращает экспоненциальную скользящую среднюю последнего значения
func EMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) < period {
		return utils.Mean(values)
	}

	// Начальное значение - SMA первых period точек
	ema := utils.Mean(values[:period])
	k := 2.0 / (float64(period) + 1)
	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}

// MACDHistogram возвращает разницу линии MACD и её сигнальной EMA
func MACDHistogram(closes []float64) float64 {
	if len(closes) < emaSlowPeriod+macdSignalLen {
		return 0
	}

	// Серия MACD по последним точкам для сигнальной линии
	macdSeries := make([]float64, 0, macdSignalLen)
	for i := macdSignalLen; i > 0; i-- {
		end := len(closes) - i + 1
		macdSeries = append(macdSeries, EMA(closes[:end], emaFastPeriod)-EMA(closes[:end], emaSlowPeriod))
	}

	macd := macdSeries[len(macdSeries)-1]
	signalLine := EMA(macdSeries, macdSignalLen)
	return macd - signalLine
}
