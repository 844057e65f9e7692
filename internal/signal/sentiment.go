package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tradebot/internal/cache"
	"tradebot/internal/models"
)

// SentimentStore читает последний сохранённый сигнал источника.
// Реализуется репозиторием сигналов.
type SentimentStore interface {
	LatestSignal(ctx context.Context, symbol string, source models.SignalSource) (*models.Signal, error)
}

// SentimentProvider отдаёт последний сохранённый сигнал анализа
// новостного фона. Сам анализатор - внешний сервис, пишущий в БД;
// здесь потребляется его вывод.
type SentimentProvider struct {
	store  SentimentStore
	cache  *cache.Cache[models.Signal]
	ttl    time.Duration
	maxAge time.Duration // старше - данных нет
	logger zerolog.Logger
}

var _ Provider = (*SentimentProvider)(nil)

// NewSentimentProvider создаёт источник сентимента
func NewSentimentProvider(store SentimentStore, c *cache.Cache[models.Signal], ttl, maxAge time.Duration, logger zerolog.Logger) *SentimentProvider {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &SentimentProvider{
		store:  store,
		cache:  c,
		ttl:    ttl,
		maxAge: maxAge,
		logger: logger.With().Str("provider", "sentiment").Logger(),
	}
}

func (p *SentimentProvider) Source() models.SignalSource {
	return models.SourceSentiment
}

func (p *SentimentProvider) Fetch(ctx context.Context, symbol string) (models.Signal, error) {
	key := "signal:sentiment:" + symbol
	return p.cache.GetOrCompute(ctx, key, p.ttl, func(ctx context.Context) (models.Signal, error) {
		return p.load(ctx, symbol)
	})
}

func (p *SentimentProvider) load(ctx context.Context, symbol string) (models.Signal, error) {
	sig, err := p.store.LatestSignal(ctx, symbol, models.SourceSentiment)
	if err != nil {
		return models.Signal{}, fmt.Errorf("load sentiment signal: %w", err)
	}
	if sig == nil {
		return models.Signal{}, fmt.Errorf("%w: no stored sentiment for %s", ErrInsufficientData, symbol)
	}
	if age := time.Since(sig.Timestamp); age > p.maxAge {
		return models.Signal{}, fmt.Errorf("%w: sentiment for %s is stale (%s old)", ErrInsufficientData, symbol, age.Round(time.Second))
	}

	return *sig, nil
}
