//go:build integration

// Package integration contains integration tests for the trading bot.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle
// - WebSocket tests: connection, broadcast messaging
// - Database tests: repository round-trips against real Postgres
//
// Integration tests use build tag "integration" to separate from unit tests.
// Run with: go test -tags=integration ./tests/integration/...
//
// A reachable Postgres instance is required; configure it with
// TEST_DB_HOST, TEST_DB_PORT, TEST_DB_NAME, TEST_DB_USER, TEST_DB_PASSWORD.
// Tests are skipped when the database is not available.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/lib/pq"

	"tradebot/internal/api"
	"tradebot/internal/cache"
	"tradebot/internal/engine"
	"tradebot/internal/exchange"
	"tradebot/internal/models"
	"tradebot/internal/monitoring"
	"tradebot/internal/repository"
	"tradebot/internal/risk"
	"tradebot/internal/service"
	"tradebot/internal/signal"
	"tradebot/internal/websocket"
	"tradebot/pkg/retry"
)

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB       *sql.DB
	Server   *httptest.Server
	Hub      *websocket.Hub
	Engine   *engine.Engine
	Risk     *risk.Manager
	Monitor  *monitoring.Monitor
	Exchange *stubExchange

	TradeRepo  *repository.TradeRepository
	SignalRepo *repository.SignalRepository
	AlertRepo  *repository.AlertRepository

	Cleanup func()
}

// stubExchange is a deterministic in-memory exchange for integration tests.
// Prices and balance are fixed so engine behavior is predictable.
type stubExchange struct {
	mu      sync.Mutex
	price   float64
	balance float64
	orders  atomic.Int64
}

func (s *stubExchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.price, nil
}

func (s *stubExchange) SetPrice(price float64) {
	s.mu.Lock()
	s.price = price
	s.mu.Unlock()
}

func (s *stubExchange) GetOHLCV(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	s.mu.Lock()
	price := s.price
	s.mu.Unlock()

	candles := make([]models.Candle, limit)
	now := time.Now().UTC()
	for i := range candles {
		candles[i] = models.Candle{
			OpenTime: now.Add(-time.Duration(limit-i) * time.Hour),
			Open:     price,
			High:     price * 1.001,
			Low:      price * 0.999,
			Close:    price,
			Volume:   100,
		}
	}
	return candles, nil
}

func (s *stubExchange) GetTopTraderRatio(ctx context.Context, symbol string) (float64, error) {
	return 1.0, nil
}

func (s *stubExchange) SubmitOrder(ctx context.Context, symbol, side string, quantity float64, orderType string) (*exchange.Fill, error) {
	s.mu.Lock()
	price := s.price
	s.mu.Unlock()

	return &exchange.Fill{
		OrderID:   s.orders.Add(1),
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Status:    "FILLED",
		Timestamp: time.Now().UTC(),
	}, nil
}

func (s *stubExchange) GetBalance(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

func (s *stubExchange) MinQtyStep(symbol string) float64 { return 0.001 }

func (s *stubExchange) Close() error { return nil }

var _ exchange.Exchange = (*stubExchange)(nil)

func testDSN() string {
	host := envOr("TEST_DB_HOST", "localhost")
	port := envOr("TEST_DB_PORT", "5432")
	name := envOr("TEST_DB_NAME", "tradebot_test")
	user := envOr("TEST_DB_USER", "postgres")
	password := envOr("TEST_DB_PASSWORD", "postgres")
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, name)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id SERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			exit_price DOUBLE PRECISION NOT NULL,
			pnl DOUBLE PRECISION NOT NULL,
			exit_reason TEXT NOT NULL,
			opened_at TIMESTAMPTZ NOT NULL,
			closed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id SERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			direction TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			source TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id SERIAL PRIMARY KEY,
			level TEXT NOT NULL,
			type TEXT NOT NULL,
			message TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			meta JSONB
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func truncateTables(db *sql.DB) {
	db.Exec(`TRUNCATE trades, signals, alerts RESTART IDENTITY`)
}

// SetupTestServer wires the full stack against a real database and a stub
// exchange. Returns nil when the test database is not reachable; callers
// must skip in that case.
func SetupTestServer(t *testing.T) *TestServer {
	t.Helper()

	db, err := sql.Open("postgres", testDSN())
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil
	}

	if err := createSchema(db); err != nil {
		db.Close()
		t.Fatalf("failed to create schema: %v", err)
	}
	truncateTables(db)

	logger := zerolog.Nop()

	tradeRepo := repository.NewTradeRepository(db)
	signalRepo := repository.NewSignalRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	ex := &stubExchange{price: 45000, balance: 10000}

	technicalCache := cache.New[models.Signal](64, logger)
	smartMoneyCache := cache.New[models.Signal](64, logger)
	sentimentCache := cache.New[models.Signal](64, logger)

	providers := []signal.Provider{
		signal.NewTechnicalProvider(ex, technicalCache, time.Second, "1h", 50, logger),
		signal.NewSmartMoneyProvider(ex, smartMoneyCache, time.Second, logger),
		signal.NewSentimentProvider(signalRepo, sentimentCache, time.Second, time.Hour, logger),
	}

	aggregator, err := signal.NewAggregator(providers, signal.AggregatorConfig{
		Weights: map[models.SignalSource]float64{
			models.SourceTechnical:  0.5,
			models.SourceSmartMoney: 0.25,
			models.SourceSentiment:  0.25,
		},
		BuyThreshold:  0.2,
		SellThreshold: 0.2,
	}, logger)
	if err != nil {
		db.Close()
		t.Fatalf("failed to build aggregator: %v", err)
	}

	riskManager, err := risk.NewManager(risk.DefaultConfig(), logger)
	if err != nil {
		db.Close()
		t.Fatalf("failed to build risk manager: %v", err)
	}

	hub := websocket.NewHub(logger)
	go hub.Run()

	eng := engine.New(ex, aggregator, riskManager, engine.Config{
		PollInterval: 50 * time.Millisecond,
		TickTimeout:  2 * time.Second,
		OrderRetry:   retry.OrderConfig(),
	}, logger)

	monitor := monitoring.New(riskManager, eng, monitoring.Config{
		Interval:         50 * time.Millisecond,
		HistoryLimit:     100,
		MaxAlertsPerHour: 0,
	}, logger)
	monitor.AddSink(alertRepo)
	monitor.AddSink(hub)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	monitor.Start(bgCtx)

	eng.SetHooks(engine.Hooks{
		TradeClosed: func(trade models.TradeRecord) {
			tradeRepo.Create(&trade)
			hub.BroadcastTradeClosed(trade)
		},
		OrderFailed: func(symbol string, err error) {
			monitor.OrderFailureAlert(symbol, err)
		},
	})

	cacheService := service.NewCacheService(logger)
	cacheService.Register("technical", technicalCache)
	cacheService.Register("smart_money", smartMoneyCache)
	cacheService.Register("sentiment", sentimentCache)

	deps := &api.Dependencies{
		EngineService: service.NewEngineService(eng, logger),
		RiskService:   service.NewRiskService(riskManager, tradeRepo, logger),
		AlertService:  service.NewAlertService(monitor, alertRepo, logger),
		CacheService:  cacheService,
		Hub:           hub,
	}

	server := httptest.NewServer(api.SetupRoutes(deps))

	return &TestServer{
		DB:         db,
		Server:     server,
		Hub:        hub,
		Engine:     eng,
		Risk:       riskManager,
		Monitor:    monitor,
		Exchange:   ex,
		TradeRepo:  tradeRepo,
		SignalRepo: signalRepo,
		AlertRepo:  alertRepo,
		Cleanup: func() {
			eng.Stop()
			bgCancel()
			hub.Stop()
			server.Close()
			truncateTables(db)
			db.Close()
		},
	}
}
