package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger.go - настройка структурированного логирования
//
// Назначение:
// Инициализация глобального zerolog логгера. Формат и уровень
// задаются конфигурацией: console для разработки, JSON для продакшена.

// LoggerConfig содержит настройки логирования
type LoggerConfig struct {
	Level  string // debug, info, warn, error
	Format string // console, json
}

// InitLogger настраивает глобальный логгер и возвращает его.
// Неизвестный уровень трактуется как info.
func InitLogger(cfg LoggerConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if strings.ToLower(cfg.Format) == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	log.Logger = logger
	return logger
}

// ParseLevel переводит строковый уровень в zerolog.Level.
// Пустой или неизвестный уровень даёт InfoLevel.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
