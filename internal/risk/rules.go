package risk

import (
	"fmt"
	"time"

	"tradebot/internal/models"
)

// TradeRequest - запрос на открытие сделки, проверяемый правилами
type TradeRequest struct {
	Symbol   string
	Side     models.Side
	Quantity float64
	Price    float64
	Balance  float64
}

// Notional возвращает денежный размер запрошенной сделки
func (r TradeRequest) Notional() float64 {
	return r.Quantity * r.Price
}

// State - снимок состояния менеджера на момент проверки.
// Правила читают только его и не трогают сам менеджер.
type State struct {
	Exposure      float64
	OpenPositions int
	HasPosition   bool
	DailyPnl      float64
	LastTrade     time.Time
	Now           time.Time
}

// Rule - одно правило валидации. Правила выполняются в фиксированном
// порядке; первое отклонившее завершает проверку со своей причиной.
type Rule interface {
	Name() string
	Check(req TradeRequest, cfg Config, st State) (bool, string)
}

// defaultRules возвращает цепочку правил в порядке проверки:
// входные данные, баланс, размер позиции, экспозиция, лимит позиций,
// дневной убыток, интервал между сделками. Дешёвые проверки первыми.
func defaultRules() []Rule {
	return []Rule{
		inputSanityRule{},
		balanceRule{},
		positionSizeRule{},
		exposureRule{},
		maxPositionsRule{},
		dailyLossRule{},
		tradeSpacingRule{},
	}
}

// ============================================================
// Встроенные правила
// ============================================================

type inputSanityRule struct{}

func (inputSanityRule) Name() string { return "input_sanity" }

func (inputSanityRule) Check(req TradeRequest, cfg Config, st State) (bool, string) {
	if req.Symbol == "" {
		return false, "symbol is empty"
	}
	if req.Side != models.SideLong && req.Side != models.SideShort {
		return false, fmt.Sprintf("invalid side %q", req.Side)
	}
	if req.Quantity <= 0 {
		return false, fmt.Sprintf("quantity must be positive, got %f", req.Quantity)
	}
	if req.Price <= 0 {
		return false, fmt.Sprintf("price must be positive, got %f", req.Price)
	}
	return true, ""
}

type balanceRule struct{}

func (balanceRule) Name() string { return "balance" }

func (balanceRule) Check(req TradeRequest, cfg Config, st State) (bool, string) {
	if notional := req.Notional(); notional > req.Balance {
		return false, fmt.Sprintf("insufficient balance: trade requires %.2f, available %.2f", notional, req.Balance)
	}
	return true, ""
}

type positionSizeRule struct{}

func (positionSizeRule) Name() string { return "position_size" }

func (positionSizeRule) Check(req TradeRequest, cfg Config, st State) (bool, string) {
	limit := cfg.MaxPositionSizeFor(req.Symbol)
	if notional := req.Notional(); notional > limit {
		return false, fmt.Sprintf("position size %.2f exceeds limit %.2f for %s", notional, limit, req.Symbol)
	}
	return true, ""
}

type exposureRule struct{}

func (exposureRule) Name() string { return "exposure" }

func (exposureRule) Check(req TradeRequest, cfg Config, st State) (bool, string) {
	if total := st.Exposure + req.Notional(); total > cfg.MaxTotalExposure {
		return false, fmt.Sprintf("total exposure %.2f would exceed limit %.2f", total, cfg.MaxTotalExposure)
	}
	return true, ""
}

type maxPositionsRule struct{}

func (maxPositionsRule) Name() string { return "max_positions" }

func (maxPositionsRule) Check(req TradeRequest, cfg Config, st State) (bool, string) {
	if st.HasPosition {
		return false, fmt.Sprintf("position already open for %s", req.Symbol)
	}
	if st.OpenPositions >= cfg.MaxPositions {
		return false, fmt.Sprintf("max concurrent positions reached (%d)", cfg.MaxPositions)
	}
	return true, ""
}

type dailyLossRule struct{}

func (dailyLossRule) Name() string { return "daily_loss" }

func (dailyLossRule) Check(req TradeRequest, cfg Config, st State) (bool, string) {
	if st.DailyPnl < -cfg.MaxDailyLoss {
		return false, fmt.Sprintf("daily loss %.2f exceeds the %.2f daily-loss floor", -st.DailyPnl, cfg.MaxDailyLoss)
	}
	return true, ""
}

type tradeSpacingRule struct{}

func (tradeSpacingRule) Name() string { return "trade_spacing" }

func (tradeSpacingRule) Check(req TradeRequest, cfg Config, st State) (bool, string) {
	if st.LastTrade.IsZero() {
		return true, ""
	}
	if since := st.Now.Sub(st.LastTrade); since < cfg.MinTradeSpacing {
		return false, fmt.Sprintf("last trade on %s was %s ago, minimum spacing %s",
			req.Symbol, since.Round(time.Second), cfg.MinTradeSpacing)
	}
	return true, ""
}
