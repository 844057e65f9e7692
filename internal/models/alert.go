package models

import "time"

// RiskLevel представляет классифицированный уровень риска
type RiskLevel string

// Уровни риска в порядке возрастания
const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Rank возвращает порядковый номер уровня для сравнения
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return -1
	}
}

// Alert представляет уведомление мониторинга
type Alert struct {
	ID        int                    `json:"id,omitempty" db:"id"`
	Level     RiskLevel              `json:"level" db:"level"`
	Type      string                 `json:"type" db:"type"` // RISK_LEVEL, ENGINE_STOPPED, ORDER_FAILED, EXCHANGE_ERROR
	Message   string                 `json:"message" db:"message"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	AlertTypeRiskLevel     = "RISK_LEVEL"     // рост классифицированного уровня риска
	AlertTypeEngineStopped = "ENGINE_STOPPED" // движок покинул RUNNING при настроенных символах
	AlertTypeOrderFailed   = "ORDER_FAILED"   // не удалось исполнить закрывающий ордер
	AlertTypeExchangeError = "EXCHANGE_ERROR" // исчерпан бюджет повторов к бирже
)
