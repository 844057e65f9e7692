package risk

import (
	"tradebot/internal/models"
	"tradebot/pkg/utils"
)

// Metrics пересчитывает риск-метрики из журнала сделок и таблицы
// позиций. Чистая производная от состояния, нигде не хранится;
// считается по снимку под мьютексом менеджера.
func (m *Manager) Metrics() models.RiskMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := models.RiskMetrics{
		TotalExposure: m.exposureLocked(),
		DailyPnl:      m.dailyPnlLocked(),
		OpenPositions: len(m.positions),
		ClosedTrades:  len(m.ledger),
		GeneratedAt:   m.now(),
	}

	if len(m.ledger) == 0 {
		return metrics
	}

	pnls := make([]float64, len(m.ledger))
	var wins, losses []float64
	for i, trade := range m.ledger {
		pnls[i] = trade.Pnl
		if trade.Pnl > 0 {
			wins = append(wins, trade.Pnl)
		} else if trade.Pnl < 0 {
			losses = append(losses, trade.Pnl)
		}
	}

	metrics.WinRate = float64(len(wins)) / float64(len(m.ledger))
	metrics.AvgWin = utils.Mean(wins)
	metrics.AvgLoss = utils.Mean(losses)
	metrics.MaxDrawdown = maxDrawdownPct(pnls)
	metrics.Volatility = utils.StdDev(pnls)
	if metrics.Volatility > 0 {
		metrics.SharpeRatio = utils.Mean(pnls) / metrics.Volatility
	}

	return metrics
}

// maxDrawdownPct возвращает наибольшую просадку кривой накопленного
// P&L в процентах от пика. Пока пик не положителен, просадка
// не определена и считается нулевой.
func maxDrawdownPct(pnls []float64) float64 {
	var equity, peak, maxDD float64
	for _, pnl := range pnls {
		equity += pnl
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
