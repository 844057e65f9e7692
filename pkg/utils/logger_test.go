package utils

import (
	"testing"

	"github.com/rs/zerolog"
)

// ============================================================
// Тесты ParseLevel
// ============================================================

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"info", "info", zerolog.InfoLevel},
		{"warn", "warn", zerolog.WarnLevel},
		{"warning alias", "warning", zerolog.WarnLevel},
		{"error", "error", zerolog.ErrorLevel},
		{"uppercase", "DEBUG", zerolog.DebugLevel},
		{"mixed case", "Info", zerolog.InfoLevel},
		{"unknown falls back to info", "trace2", zerolog.InfoLevel},
		{"empty falls back to info", "", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.level); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.expected)
			}
		})
	}
}

// ============================================================
// Тесты InitLogger
// ============================================================

func TestInitLogger_Level(t *testing.T) {
	logger := InitLogger(LoggerConfig{Level: "warn", Format: "json"})

	if logger.GetLevel() != zerolog.WarnLevel {
		t.Errorf("уровень логгера: ожидали warn, получили %v", logger.GetLevel())
	}
}

func TestInitLogger_DefaultLevel(t *testing.T) {
	logger := InitLogger(LoggerConfig{})

	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("уровень по умолчанию: ожидали info, получили %v", logger.GetLevel())
	}
}
