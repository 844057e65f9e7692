package websocket

import (
	"time"

	"tradebot/internal/engine"
	"tradebot/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeAlert - новый алерт мониторинга
	MessageTypeAlert MessageType = "alert"

	// MessageTypeEngineStatus - смена состояния движка или набора символов
	MessageTypeEngineStatus MessageType = "engineStatus"

	// MessageTypeTradeClosed - закрыта позиция, записана сделка
	MessageTypeTradeClosed MessageType = "tradeClosed"

	// MessageTypePositionOpened - открыта новая позиция
	MessageTypePositionOpened MessageType = "positionOpened"

	// MessageTypeRiskMetrics - периодический снимок риск-метрик
	MessageTypeRiskMetrics MessageType = "riskMetrics"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// AlertMessage - сообщение с алертом мониторинга
type AlertMessage struct {
	BaseMessage
	Data models.Alert `json:"data"`
}

// EngineStatusMessage - сообщение о состоянии движка
type EngineStatusMessage struct {
	BaseMessage
	Data engine.Status `json:"data"`
}

// TradeClosedMessage - сообщение о закрытой сделке
type TradeClosedMessage struct {
	BaseMessage
	Data models.TradeRecord `json:"data"`
}

// PositionOpenedMessage - сообщение об открытой позиции
type PositionOpenedMessage struct {
	BaseMessage
	Data models.Position `json:"data"`
}

// RiskMetricsMessage - сообщение с риск-метриками
type RiskMetricsMessage struct {
	BaseMessage
	Data models.RiskMetrics `json:"data"`
}

// ============ Фабричные функции для создания сообщений ============

// NewAlertMessage создает сообщение с алертом
func NewAlertMessage(alert models.Alert) *AlertMessage {
	return &AlertMessage{
		BaseMessage: BaseMessage{Type: MessageTypeAlert, Timestamp: time.Now()},
		Data:        alert,
	}
}

// NewEngineStatusMessage создает сообщение о состоянии движка
func NewEngineStatusMessage(status engine.Status) *EngineStatusMessage {
	return &EngineStatusMessage{
		BaseMessage: BaseMessage{Type: MessageTypeEngineStatus, Timestamp: time.Now()},
		Data:        status,
	}
}

// NewTradeClosedMessage создает сообщение о закрытой сделке
func NewTradeClosedMessage(trade models.TradeRecord) *TradeClosedMessage {
	return &TradeClosedMessage{
		BaseMessage: BaseMessage{Type: MessageTypeTradeClosed, Timestamp: time.Now()},
		Data:        trade,
	}
}

// NewPositionOpenedMessage создает сообщение об открытой позиции
func NewPositionOpenedMessage(pos models.Position) *PositionOpenedMessage {
	return &PositionOpenedMessage{
		BaseMessage: BaseMessage{Type: MessageTypePositionOpened, Timestamp: time.Now()},
		Data:        pos,
	}
}

// NewRiskMetricsMessage создает сообщение с риск-метриками
func NewRiskMetricsMessage(metrics models.RiskMetrics) *RiskMetricsMessage {
	return &RiskMetricsMessage{
		BaseMessage: BaseMessage{Type: MessageTypeRiskMetrics, Timestamp: time.Now()},
		Data:        metrics,
	}
}
