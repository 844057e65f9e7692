package utils

import (
	"testing"
	"time"
)

// ============================================================
// Тесты границ суток
// ============================================================

func TestGetDayStartFrom(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected time.Time
	}{
		{
			name:     "middle of day",
			input:    time.Date(2024, 1, 15, 14, 30, 45, 123456789, time.UTC),
			expected: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "start of day",
			input:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "end of day",
			input:    time.Date(2024, 1, 15, 23, 59, 59, 999999999, time.UTC),
			expected: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non-UTC converted first",
			// 01:00 UTC+3 = 22:00 UTC предыдущего дня
			input:    time.Date(2024, 1, 15, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)),
			expected: time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetDayStartFrom(tt.input)
			if !result.Equal(tt.expected) {
				t.Errorf("GetDayStartFrom(%v) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetDayStart_IsMidnight(t *testing.T) {
	start := GetDayStart()
	if start.After(time.Now().UTC()) {
		t.Error("начало дня не может быть в будущем")
	}
	if start.Hour() != 0 || start.Minute() != 0 || start.Second() != 0 {
		t.Errorf("начало дня должно быть 00:00:00, получили %v", start)
	}
}

// ============================================================
// Тесты timestamp
// ============================================================

func TestFromUnixMillis(t *testing.T) {
	ms := int64(1705314645000) // 2024-01-15 10:30:45 UTC
	result := FromUnixMillis(ms)

	expected := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("FromUnixMillis(%d) = %v, want %v", ms, result, expected)
	}
}

func TestUnixMillis_RoundTrip(t *testing.T) {
	ms := UnixMillis()
	restored := FromUnixMillis(ms)

	diff := time.Since(restored)
	if diff < 0 {
		diff = -diff
	}
	if diff > time.Second {
		t.Errorf("round trip drift too large: %v", diff)
	}
}

// ============================================================
// Тесты FormatDuration
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"seconds only", 45 * time.Second, "45s"},
		{"minutes and seconds", 5*time.Minute + 30*time.Second, "5m30s"},
		{"hours and minutes", 2*time.Hour + 15*time.Minute, "2h15m0s"},
		{"exact hour", 3 * time.Hour, "3h0m0s"},
		{"negative becomes positive", -45 * time.Second, "45s"},
		{"zero", 0, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := FormatDuration(tt.duration); result != tt.expected {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.duration, result, tt.expected)
			}
		})
	}
}
