package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Security   SecurityConfig
	Exchange   ExchangeConfig
	Engine     EngineConfig
	Risk       RiskConfig
	Signals    SignalsConfig
	Monitoring MonitoringConfig
	Telegram   TelegramConfig
	Logging    LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// bcrypt-хэш API ключа для HTTP слоя; пусто = auth выключен
	APIKeyHash string

	// 32 байта для AES-256 шифрования биржевых ключей в БД
	EncryptionKey string
}

// ExchangeConfig - настройки подключения к бирже
type ExchangeConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration

	// Запросов в секунду к REST API биржи
	RateLimit float64

	// Ключи в окружении зашифрованы AES-256-GCM (base64).
	// Требует ENCRYPTION_KEY.
	KeysEncrypted bool
}

// EngineConfig - настройки торгового цикла
type EngineConfig struct {
	PollInterval time.Duration // период тиков по каждому символу
	TickTimeout  time.Duration // бюджет одного тика

	// Retry для отправки ордеров
	MaxRetries   int
	RetryBackoff time.Duration
}

// RiskConfig - выбор риск-профиля
type RiskConfig struct {
	// default, conservative или aggressive
	Profile string
}

// SignalsConfig - настройки источников сигналов и агрегации
type SignalsConfig struct {
	TechnicalWeight  float64
	SmartMoneyWeight float64
	SentimentWeight  float64
	BuyThreshold     float64
	SellThreshold    float64

	// Свежесть сентимент-сигнала из БД
	SentimentMaxAge time.Duration

	// TTL кэшей
	SignalTTL time.Duration
	PriceTTL  time.Duration
}

// MonitoringConfig - настройки мониторинга рисков
type MonitoringConfig struct {
	Interval         time.Duration
	HistoryLimit     int
	MaxAlertsPerHour int
}

// TelegramConfig - доставка алертов в telegram
type TelegramConfig struct {
	Enabled bool
	Token   string
	ChatID  int64
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "tradebot"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			APIKeyHash:    getEnv("API_KEY_HASH", ""),
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		Exchange: ExchangeConfig{
			BaseURL:   getEnv("EXCHANGE_BASE_URL", "https://fapi.binance.com"),
			APIKey:    getEnv("EXCHANGE_API_KEY", ""),
			APISecret: getEnv("EXCHANGE_API_SECRET", ""),
			Timeout:       getEnvAsDuration("EXCHANGE_TIMEOUT", 10*time.Second),
			RateLimit:     getEnvAsFloat("EXCHANGE_RATE_LIMIT", 10),
			KeysEncrypted: getEnvAsBool("EXCHANGE_KEYS_ENCRYPTED", false),
		},
		Engine: EngineConfig{
			PollInterval: getEnvAsDuration("ENGINE_POLL_INTERVAL", 5*time.Second),
			TickTimeout:  getEnvAsDuration("ENGINE_TICK_TIMEOUT", 30*time.Second),
			MaxRetries:   getEnvAsInt("ORDER_MAX_RETRIES", 3),
			RetryBackoff: getEnvAsDuration("ORDER_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Risk: RiskConfig{
			Profile: getEnv("RISK_PROFILE", "default"),
		},
		Signals: SignalsConfig{
			TechnicalWeight:  getEnvAsFloat("SIGNAL_TECHNICAL_WEIGHT", 0.5),
			SmartMoneyWeight: getEnvAsFloat("SIGNAL_SMART_MONEY_WEIGHT", 0.25),
			SentimentWeight:  getEnvAsFloat("SIGNAL_SENTIMENT_WEIGHT", 0.25),
			BuyThreshold:     getEnvAsFloat("SIGNAL_BUY_THRESHOLD", 0.2),
			SellThreshold:    getEnvAsFloat("SIGNAL_SELL_THRESHOLD", 0.2),
			SentimentMaxAge:  getEnvAsDuration("SENTIMENT_MAX_AGE", time.Hour),
			SignalTTL:        getEnvAsDuration("SIGNAL_CACHE_TTL", 30*time.Second),
			PriceTTL:         getEnvAsDuration("PRICE_CACHE_TTL", 2*time.Second),
		},
		Monitoring: MonitoringConfig{
			Interval:         getEnvAsDuration("MONITORING_INTERVAL", 30*time.Second),
			HistoryLimit:     getEnvAsInt("MONITORING_HISTORY_LIMIT", 500),
			MaxAlertsPerHour: getEnvAsInt("MONITORING_MAX_ALERTS_PER_HOUR", 20),
		},
		Telegram: TelegramConfig{
			Enabled: getEnvAsBool("TELEGRAM_ENABLED", false),
			Token:   getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:  int64(getEnvAsInt("TELEGRAM_CHAT_ID", 0)),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate проверяет критичные параметры
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Security.EncryptionKey != "" && len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}
	if c.Exchange.KeysEncrypted && c.Security.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required when EXCHANGE_KEYS_ENCRYPTED=true")
	}

	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("ORDER_MAX_RETRIES cannot be negative, got %d", c.Engine.MaxRetries)
	}
	if c.Engine.MaxRetries > 10 {
		return fmt.Errorf("ORDER_MAX_RETRIES should not exceed 10, got %d", c.Engine.MaxRetries)
	}
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("ENGINE_POLL_INTERVAL must be positive, got %v", c.Engine.PollInterval)
	}
	if c.Engine.TickTimeout <= 0 {
		return fmt.Errorf("ENGINE_TICK_TIMEOUT must be positive, got %v", c.Engine.TickTimeout)
	}

	switch c.Risk.Profile {
	case "default", "conservative", "aggressive":
	default:
		return fmt.Errorf("RISK_PROFILE must be default, conservative or aggressive, got %q", c.Risk.Profile)
	}

	for name, w := range map[string]float64{
		"SIGNAL_TECHNICAL_WEIGHT":   c.Signals.TechnicalWeight,
		"SIGNAL_SMART_MONEY_WEIGHT": c.Signals.SmartMoneyWeight,
		"SIGNAL_SENTIMENT_WEIGHT":   c.Signals.SentimentWeight,
	} {
		if w < 0 {
			return fmt.Errorf("%s cannot be negative, got %f", name, w)
		}
	}
	if c.Signals.TechnicalWeight+c.Signals.SmartMoneyWeight+c.Signals.SentimentWeight <= 0 {
		return fmt.Errorf("signal weights must sum to a positive value")
	}

	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when TELEGRAM_ENABLED=true")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_ENABLED=true")
		}
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
