package utils

import (
	"math"
)

// math.go - математические утилиты торгового ядра
//
// Назначение:
// Вспомогательные математические функции для расчёта объёмов
// и статистики по сделкам. Все функции чистые, без побочных эффектов.

// RoundToLotSize округляет значение ВНИЗ до ближайшего кратного lotSize.
//
// Используется для округления объёма ордера до минимального шага биржи.
// Округление вниз гарантирует, что мы не превысим доступные средства.
//
// Параметры:
//   - value: исходное значение (объём в монетах актива)
//   - lotSize: минимальный шаг изменения объёма на бирже
//
// Возвращает:
//   - Округлённое значение, кратное lotSize
//   - Если lotSize <= 0, возвращает исходное значение
//
// Примеры:
//   - RoundToLotSize(0.123456, 0.001) = 0.123
//   - RoundToLotSize(1.999, 0.01) = 1.99
func RoundToLotSize(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	// Floor: округление вниз безопаснее для торговли
	return math.Floor(value/lotSize) * lotSize
}

// RoundToLotSizeUp округляет значение ВВЕРХ до ближайшего кратного lotSize.
//
// Используется когда нужно гарантировать минимальный объём (например, minQty).
func RoundToLotSizeUp(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Ceil(value/lotSize) * lotSize
}

// Mean возвращает среднее арифметическое.
// Пустой слайс даёт 0.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev возвращает стандартное отклонение выборки.
// Менее двух значений дают 0.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Abs возвращает абсолютное значение числа.
func Abs(x float64) float64 {
	return math.Abs(x)
}

// Min возвращает минимум из двух чисел.
func Min(a, b float64) float64 {
	return math.Min(a, b)
}

// Max возвращает максимум из двух чисел.
func Max(a, b float64) float64 {
	return math.Max(a, b)
}
