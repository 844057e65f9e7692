package service

import (
	"testing"

	"github.com/rs/zerolog"

	"tradebot/internal/cache"
)

func TestCacheServiceStatsAndClear(t *testing.T) {
	prices := cache.New[float64](10, zerolog.Nop())
	signals := cache.New[string](10, zerolog.Nop())

	s := NewCacheService(zerolog.Nop())
	s.Register("prices", prices)
	s.Register("signals", signals)

	prices.Set("BTCUSDT", 45000, 0)
	prices.Set("ETHUSDT", 2500, 0)
	signals.Set("BTCUSDT", "BUY", 0)

	stats := s.GetStats()
	if len(stats) != 2 {
		t.Fatalf("expected 2 caches, got %d", len(stats))
	}
	if stats["prices"].Size != 2 {
		t.Errorf("expected prices size 2, got %d", stats["prices"].Size)
	}
	if stats["signals"].Size != 1 {
		t.Errorf("expected signals size 1, got %d", stats["signals"].Size)
	}

	if cleared := s.ClearAll(); cleared != 2 {
		t.Errorf("expected 2 caches cleared, got %d", cleared)
	}
	if s.GetStats()["prices"].Size != 0 {
		t.Error("prices cache should be empty after clear")
	}
}

func TestCacheServiceEmpty(t *testing.T) {
	s := NewCacheService(zerolog.Nop())
	if len(s.GetStats()) != 0 {
		t.Error("no caches registered, stats should be empty")
	}
	if s.ClearAll() != 0 {
		t.Error("nothing to clear")
	}
}
