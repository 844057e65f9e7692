package models

import "time"

// TradeRecord представляет запись о закрытой сделке в журнале
type TradeRecord struct {
	ID         int        `json:"id" db:"id"`
	Symbol     string     `json:"symbol" db:"symbol"`
	Side       Side       `json:"side" db:"side"`
	Quantity   float64    `json:"quantity" db:"quantity"`
	EntryPrice float64    `json:"entry_price" db:"entry_price"`
	ExitPrice  float64    `json:"exit_price" db:"exit_price"`
	Pnl        float64    `json:"pnl" db:"pnl"` // реализованный PNL
	ExitReason ExitReason `json:"exit_reason" db:"exit_reason"`
	OpenedAt   time.Time  `json:"opened_at" db:"opened_at"`
	ClosedAt   time.Time  `json:"closed_at" db:"closed_at"`
}

// RiskMetrics представляет производные метрики риска.
// Пересчитываются по требованию из журнала сделок и таблицы позиций,
// никогда не хранятся как источник истины.
type RiskMetrics struct {
	TotalExposure float64   `json:"total_exposure"` // сумма нотионалов открытых позиций
	DailyPnl      float64   `json:"daily_pnl"`      // реализованный PNL с начала суток UTC
	WinRate       float64   `json:"win_rate"`       // доля прибыльных сделок [0, 1]
	AvgWin        float64   `json:"avg_win"`
	AvgLoss       float64   `json:"avg_loss"` // отрицательное значение
	MaxDrawdown   float64   `json:"max_drawdown"`   // доля падения от пика эквити [0, 1]
	Volatility    float64   `json:"volatility"`     // стандартное отклонение PNL сделок
	SharpeRatio   float64   `json:"sharpe_ratio"`
	OpenPositions int       `json:"open_positions"`
	ClosedTrades  int       `json:"closed_trades"`
	GeneratedAt   time.Time `json:"generated_at"`
}
