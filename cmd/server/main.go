package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"tradebot/internal/api"
	"tradebot/internal/cache"
	"tradebot/internal/config"
	"tradebot/internal/engine"
	"tradebot/internal/exchange"
	"tradebot/internal/models"
	"tradebot/internal/monitoring"
	"tradebot/internal/notifier"
	"tradebot/internal/repository"
	"tradebot/internal/risk"
	"tradebot/internal/service"
	"tradebot/internal/signal"
	"tradebot/internal/websocket"
	"tradebot/pkg/crypto"
	"tradebot/pkg/retry"
	"tradebot/pkg/utils"
)

func main() {
	// .env опционален: в продакшене переменные приходят из окружения
	_ = godotenv.Load()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.InitLogger(utils.LoggerConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("dsn", cfg.Database.DSNWithoutPassword()).Msg("failed to connect to database")
	}
	defer db.Close()

	logger.Info().Str("dsn", cfg.Database.DSNWithoutPassword()).Msg("connected to database")

	// Инициализация репозиториев
	tradeRepo := repository.NewTradeRepository(db)
	signalRepo := repository.NewSignalRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Контекст фоновых задач: свиперы кэшей и мониторинг
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Кэши: отдельный под сигналы каждого источника, чтобы TTL
	// и конкуренция одного источника не затрагивали остальные
	technicalCache := cache.New[models.Signal](256, logger)
	smartMoneyCache := cache.New[models.Signal](256, logger)
	sentimentCache := cache.New[models.Signal](256, logger)
	for _, c := range []*cache.Cache[models.Signal]{technicalCache, smartMoneyCache, sentimentCache} {
		c.StartSweeper(bgCtx, time.Minute)
	}

	// Биржа. Ключи в окружении могут храниться зашифрованными
	apiKey, apiSecret := cfg.Exchange.APIKey, cfg.Exchange.APISecret
	if cfg.Exchange.KeysEncrypted {
		encKey := []byte(cfg.Security.EncryptionKey)
		if apiKey, err = crypto.Decrypt(cfg.Exchange.APIKey, encKey); err != nil {
			logger.Fatal().Err(err).Msg("failed to decrypt exchange api key")
		}
		if apiSecret, err = crypto.Decrypt(cfg.Exchange.APISecret, encKey); err != nil {
			logger.Fatal().Err(err).Msg("failed to decrypt exchange api secret")
		}
	}

	ex := exchange.NewBinance(exchange.BinanceConfig{
		APIKey:    apiKey,
		SecretKey: apiSecret,
		BaseURL:   cfg.Exchange.BaseURL,
		RPS:       cfg.Exchange.RateLimit,
	}, logger)

	// Источники сигналов и агрегатор
	providers := []signal.Provider{
		signal.NewTechnicalProvider(ex, technicalCache, cfg.Signals.SignalTTL, "1h", 100, logger),
		signal.NewSmartMoneyProvider(ex, smartMoneyCache, cfg.Signals.SignalTTL, logger),
		signal.NewSentimentProvider(signalRepo, sentimentCache, cfg.Signals.SignalTTL, cfg.Signals.SentimentMaxAge, logger),
	}

	aggregator, err := signal.NewAggregator(providers, signal.AggregatorConfig{
		Weights: map[models.SignalSource]float64{
			models.SourceTechnical:  cfg.Signals.TechnicalWeight,
			models.SourceSmartMoney: cfg.Signals.SmartMoneyWeight,
			models.SourceSentiment:  cfg.Signals.SentimentWeight,
		},
		BuyThreshold:  cfg.Signals.BuyThreshold,
		SellThreshold: cfg.Signals.SellThreshold,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build signal aggregator")
	}

	// Риск-менеджер из выбранного профиля
	riskManager, err := risk.NewManager(risk.ConfigForProfile(cfg.Risk.Profile), logger)
	if err != nil {
		logger.Fatal().Err(err).Str("profile", cfg.Risk.Profile).Msg("failed to build risk manager")
	}

	// WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run()

	// Торговый движок
	orderRetry := retry.OrderConfig()
	orderRetry.MaxRetries = cfg.Engine.MaxRetries
	orderRetry.InitialDelay = cfg.Engine.RetryBackoff

	eng := engine.New(ex, aggregator, riskManager, engine.Config{
		PollInterval: cfg.Engine.PollInterval,
		TickTimeout:  cfg.Engine.TickTimeout,
		OrderRetry:   orderRetry,
	}, logger)

	// Мониторинг рисков: БД и WebSocket слушают всегда, telegram по конфигу
	monitor := monitoring.New(riskManager, eng, monitoring.Config{
		Interval:         cfg.Monitoring.Interval,
		HistoryLimit:     cfg.Monitoring.HistoryLimit,
		MaxAlertsPerHour: cfg.Monitoring.MaxAlertsPerHour,
	}, logger)
	monitor.AddSink(alertRepo)
	monitor.AddSink(hub)

	if cfg.Telegram.Enabled {
		tg, err := notifier.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init telegram notifier")
		}
		monitor.AddSink(tg)
		logger.Info().Int64("chat_id", cfg.Telegram.ChatID).Msg("telegram alerts enabled")
	}

	monitor.Start(bgCtx)

	// Hooks движка: персистентность сделок и real-time события
	eng.SetHooks(engine.Hooks{
		PositionOpened: func(pos models.Position) {
			hub.BroadcastPositionOpened(pos)
		},
		TradeClosed: func(trade models.TradeRecord) {
			if err := tradeRepo.Create(&trade); err != nil {
				logger.Error().Err(err).Str("symbol", trade.Symbol).Msg("failed to persist closed trade")
			}
			hub.BroadcastTradeClosed(trade)
			hub.BroadcastRiskMetrics(riskManager.Metrics())
		},
		OrderFailed: func(symbol string, err error) {
			monitor.OrderFailureAlert(symbol, err)
		},
	})

	// Инициализация сервисов
	engineService := service.NewEngineService(eng, logger)
	riskService := service.NewRiskService(riskManager, tradeRepo, logger)
	alertService := service.NewAlertService(monitor, alertRepo, logger)

	cacheService := service.NewCacheService(logger)
	cacheService.Register("technical", technicalCache)
	cacheService.Register("smart_money", smartMoneyCache)
	cacheService.Register("sentiment", sentimentCache)

	// Дневной лимит убытков переживает рестарт процесса
	if err := riskService.RestoreLedger(); err != nil {
		logger.Error().Err(err).Msg("failed to restore daily pnl ledger, starting from zero")
	}

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		EngineService: engineService,
		RiskService:   riskService,
		AlertService:  alertService,
		CacheService:  cacheService,
		Hub:           hub,
		APIKeyHash:    cfg.Security.APIKeyHash,
	}

	router := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		logger.Info().Str("addr", server.Addr).Bool("https", cfg.Server.UseHTTPS).Msg("starting server")
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal().Err(err).Msg("server failed")
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal().Err(err).Msg("server failed")
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdown(eng, hub, bgCancel, server, logger)
}

// shutdown останавливает компоненты в порядке, обратном запуску:
// сначала торговля, затем фоновые задачи, затем HTTP.
func shutdown(eng *engine.Engine, hub *websocket.Hub, bgCancel context.CancelFunc, server *http.Server, logger zerolog.Logger) {
	if err := eng.Stop(); err != nil {
		logger.Warn().Err(err).Msg("engine stop")
	}

	bgCancel()
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
