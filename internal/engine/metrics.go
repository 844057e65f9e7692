package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового движка
// ============================================================

// TicksProcessed - обработанные тики по символам
var TicksProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "engine",
		Name:      "ticks_total",
		Help:      "Total number of processed symbol ticks",
	},
	[]string{"symbol", "result"}, // result: ok, error
)

// TradesOpened - открытые позиции
var TradesOpened = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "engine",
		Name:      "trades_opened_total",
		Help:      "Total number of opened positions",
	},
	[]string{"symbol", "side"},
)

// TradesClosed - закрытые позиции по причинам выхода
var TradesClosed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "engine",
		Name:      "trades_closed_total",
		Help:      "Total number of closed positions by exit reason",
	},
	[]string{"symbol", "reason"}, // STOP_LOSS, TIME_EXIT, TAKE_PROFIT
)

// TradeRejects - сделки, отклонённые риск-менеджером
var TradeRejects = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "risk",
		Name:      "trade_rejects_total",
		Help:      "Total number of trades rejected by risk validation",
	},
	[]string{"symbol"},
)

// OrderFailures - ордера, не прошедшие после всех retry
var OrderFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "engine",
		Name:      "order_failures_total",
		Help:      "Total number of order submissions failed after retries",
	},
	[]string{"symbol"},
)

// EngineUp - текущее состояние движка (1 в активном состоянии)
var EngineUp = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "tradebot",
		Subsystem: "engine",
		Name:      "state",
		Help:      "Engine state (1 for the current state, 0 otherwise)",
	},
	[]string{"state"},
)

// OpenPositions - текущее количество открытых позиций
var OpenPositions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "tradebot",
		Subsystem: "risk",
		Name:      "open_positions",
		Help:      "Current number of open positions",
	},
)

// RealizedPnl - накопленный реализованный P&L в USDT
var RealizedPnl = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "tradebot",
		Subsystem: "risk",
		Name:      "realized_pnl_usdt",
		Help:      "Cumulative realized PnL in USDT",
	},
)

// recordState выставляет gauge текущего состояния
func recordState(s State) {
	for _, state := range []State{StateStopped, StateStarting, StateRunning, StateStopping} {
		v := 0.0
		if state == s {
			v = 1
		}
		EngineUp.WithLabelValues(string(state)).Set(v)
	}
}
