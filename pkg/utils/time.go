package utils

import (
	"time"
)

// time.go - утилиты для работы со временем
//
// Назначение:
// Границы суток для расчёта дневного PNL и конвертация
// биржевых timestamp (миллисекунды Unix).

// GetDayStart возвращает начало текущего дня (00:00:00) в UTC.
// Дневной PNL и лимит дневного убытка считаются от этой границы.
func GetDayStart() time.Time {
	return GetDayStartFrom(time.Now().UTC())
}

// GetDayStartFrom возвращает начало дня для указанного времени в UTC
func GetDayStartFrom(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// UnixMillis возвращает текущее время в миллисекундах Unix.
// Binance принимает и отдаёт timestamp в этом формате.
func UnixMillis() int64 {
	return time.Now().UnixMilli()
}

// FromUnixMillis конвертирует миллисекунды Unix в time.Time
func FromUnixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// FormatDuration форматирует продолжительность в человекочитаемый формат
//
// Примеры:
//   - "45s"
//   - "5m30s"
//   - "2h15m"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		if minutes > 0 {
			return (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute).String()
		}
		return (time.Duration(hours) * time.Hour).String()
	}

	if minutes > 0 {
		if seconds > 0 {
			return (time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second).String()
		}
		return (time.Duration(minutes) * time.Minute).String()
	}

	return (time.Duration(seconds) * time.Second).String()
}
