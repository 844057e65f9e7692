package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradebot/internal/models"
)

// AggregatorConfig задаёт веса источников и пороги решения.
// Итоговая оценка - взвешенная сумма направление*уверенность по всем
// ответившим источникам; выше BuyThreshold - BUY, ниже -SellThreshold - SELL.
type AggregatorConfig struct {
	Weights       map[models.SignalSource]float64
	BuyThreshold  float64
	SellThreshold float64
}

// DefaultAggregatorConfig возвращает веса и пороги по умолчанию
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Weights: map[models.SignalSource]float64{
			models.SourceTechnical:  0.5,
			models.SourceSmartMoney: 0.25,
			models.SourceSentiment:  0.25,
		},
		BuyThreshold:  0.2,
		SellThreshold: 0.2,
	}
}

// Validate проверяет конфигурацию агрегатора
func (c AggregatorConfig) Validate() error {
	var total float64
	for source, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("weight for %s is negative: %f", source, w)
		}
		total += w
	}
	if total <= 0 {
		return errors.New("total source weight must be positive")
	}
	if c.BuyThreshold < 0 || c.SellThreshold < 0 {
		return errors.New("thresholds must be non-negative")
	}
	return nil
}

// Aggregator сводит сигналы нескольких источников в одно решение.
// Отказ части источников допустим: решение строится по оставшимся.
type Aggregator struct {
	providers []Provider
	config    AggregatorConfig
	logger    zerolog.Logger
}

// NewAggregator создаёт агрегатор сигналов
func NewAggregator(providers []Provider, config AggregatorConfig, logger zerolog.Logger) (*Aggregator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("aggregator config: %w", err)
	}
	if len(providers) == 0 {
		return nil, errors.New("at least one signal provider required")
	}
	return &Aggregator{
		providers: providers,
		config:    config,
		logger:    logger.With().Str("component", "aggregator").Logger(),
	}, nil
}

// Aggregate опрашивает все источники параллельно и возвращает итоговый
// сигнал. ErrNoSignalAvailable возвращается только если отказали все.
func (a *Aggregator) Aggregate(ctx context.Context, symbol string) (*models.AggregatedSignal, error) {
	type result struct {
		source models.SignalSource
		signal models.Signal
		err    error
	}

	results := make([]result, len(a.providers))
	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			sig, err := p.Fetch(ctx, symbol)
			results[i] = result{source: p.Source(), signal: sig, err: err}
		}(i, p)
	}
	wg.Wait()

	components := make(map[models.SignalSource]models.Signal)
	var score, usedWeight float64
	for _, r := range results {
		if r.err != nil {
			a.logger.Warn().
				Str("symbol", symbol).
				Str("source", string(r.source)).
				Err(r.err).
				Msg("signal source failed, continuing without it")
			continue
		}
		weight := a.config.Weights[r.source]
		if weight == 0 {
			continue
		}
		components[r.source] = r.signal
		score += weight * r.signal.Direction.Score() * r.signal.Confidence
		usedWeight += weight
	}

	if len(components) == 0 {
		return nil, fmt.Errorf("%w: all sources failed for %s", ErrNoSignalAvailable, symbol)
	}

	direction := models.DirectionHold
	switch {
	case score > a.config.BuyThreshold:
		direction = models.DirectionBuy
	case score < -a.config.SellThreshold:
		direction = models.DirectionSell
	}

	// Уверенность - модуль оценки, нормированный на задействованный вес
	confidence := score
	if confidence < 0 {
		confidence = -confidence
	}
	if usedWeight > 0 {
		confidence /= usedWeight
	}
	if confidence > 1 {
		confidence = 1
	}

	a.logger.Debug().
		Str("symbol", symbol).
		Float64("score", score).
		Str("direction", string(direction)).
		Int("sources", len(components)).
		Msg("signals aggregated")

	return &models.AggregatedSignal{
		Symbol:     symbol,
		Direction:  direction,
		Confidence: confidence,
		Score:      score,
		Components: components,
		Timestamp:  time.Now().UTC(),
	}, nil
}
