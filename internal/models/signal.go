package models

import "time"

// Direction представляет направление торгового сигнала
type Direction string

// Направления сигнала
const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// Score возвращает числовой вклад направления в взвешенную сумму
func (d Direction) Score() float64 {
	switch d {
	case DirectionBuy:
		return 1
	case DirectionSell:
		return -1
	default:
		return 0
	}
}

// SignalSource представляет источник сигнала
type SignalSource string

// Источники сигналов
const (
	SourceTechnical  SignalSource = "technical"   // индикаторы по OHLCV
	SourceSmartMoney SignalSource = "smart_money" // соотношение позиций топ-трейдеров
	SourceSentiment  SignalSource = "sentiment"   // анализ новостного фона
)

// Signal представляет сигнал одного источника
type Signal struct {
	ID         int          `json:"id,omitempty" db:"id"`
	Symbol     string       `json:"symbol" db:"symbol"`
	Direction  Direction    `json:"direction" db:"direction"`
	Confidence float64      `json:"confidence" db:"confidence"` // [0, 1]
	Source     SignalSource `json:"source" db:"source"`
	Timestamp  time.Time    `json:"timestamp" db:"timestamp"`
}

// AggregatedSignal представляет итог взвешенного голосования источников
type AggregatedSignal struct {
	Symbol     string                  `json:"symbol"`
	Direction  Direction               `json:"direction"`
	Confidence float64                 `json:"confidence"` // |score|, обрезанный до [0, 1]
	Score      float64                 `json:"score"`      // взвешенная сумма до порогов
	Components map[SignalSource]Signal `json:"components"` // только успешные источники
	Timestamp  time.Time               `json:"timestamp"`
}

// Candle представляет одну OHLCV свечу
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}
