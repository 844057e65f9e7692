package utils

import (
	"fmt"
	"strings"
)

// validator.go - валидация входных данных
//
// Назначение:
// Проверка корректности данных на границах системы (конфигурация, API).
// Возвращают error с описанием проблемы или nil.

// ValidateSymbol проверяет формат торгового символа (BTCUSDT).
// Символ: 5-20 заглавных латинских букв или цифр.
func ValidateSymbol(symbol string) error {
	if len(symbol) < 5 || len(symbol) > 20 {
		return fmt.Errorf("symbol %q: length must be 5-20 characters", symbol)
	}
	for _, r := range symbol {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("symbol %q: only uppercase letters and digits allowed", symbol)
		}
	}
	return nil
}

// ValidateSymbols проверяет непустой список символов без дубликатов
func ValidateSymbols(symbols []string) error {
	if len(symbols) == 0 {
		return fmt.Errorf("symbol list is empty")
	}
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if err := ValidateSymbol(s); err != nil {
			return err
		}
		if _, ok := seen[s]; ok {
			return fmt.Errorf("duplicate symbol %q", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// ValidatePercent проверяет процентное значение в диапазоне (0, 100]
func ValidatePercent(name string, value float64) error {
	if value <= 0 || value > 100 {
		return fmt.Errorf("%s: %.4f is out of range (0, 100]", name, value)
	}
	return nil
}

// ValidatePositive проверяет что значение строго положительно
func ValidatePositive(name string, value float64) error {
	if value <= 0 {
		return fmt.Errorf("%s: %.4f must be positive", name, value)
	}
	return nil
}

// ValidateAPIKey выполняет базовую проверку биржевого API ключа
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if len(key) < 16 {
		return fmt.Errorf("api key is too short")
	}
	return nil
}
