package repository

import (
	"database/sql"
	"time"

	jsoniter "github.com/json-iterator/go"

	"tradebot/internal/models"
)

var alertJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// AlertRepository - работа с таблицей alerts: журнал уведомлений.
// Реализует monitoring.AlertSink, поэтому подключается к монитору
// как обычный канал доставки.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository создает новый экземпляр репозитория
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create сохраняет алерт, meta сериализуется в jsonb
func (r *AlertRepository) Create(alert *models.Alert) error {
	var meta interface{}
	if alert.Meta != nil {
		data, err := alertJSON.Marshal(alert.Meta)
		if err != nil {
			return err
		}
		meta = data
	}

	query := `
		INSERT INTO alerts (level, type, message, timestamp, meta)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return r.db.QueryRow(
		query,
		alert.Level,
		alert.Type,
		alert.Message,
		alert.Timestamp,
		meta,
	).Scan(&alert.ID)
}

// Send сохраняет алерт в БД. Канал доставки для мониторинга.
func (r *AlertRepository) Send(alert models.Alert) error {
	return r.Create(&alert)
}

// GetSince возвращает алерты не старше since, новые первыми
func (r *AlertRepository) GetSince(since time.Time, limit int) ([]*models.Alert, error) {
	query := `
		SELECT id, level, type, message, timestamp, meta
		FROM alerts
		WHERE timestamp >= $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert := &models.Alert{}
		var meta []byte
		err := rows.Scan(
			&alert.ID,
			&alert.Level,
			&alert.Type,
			&alert.Message,
			&alert.Timestamp,
			&meta,
		)
		if err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := alertJSON.Unmarshal(meta, &alert.Meta); err != nil {
				return nil, err
			}
		}
		alerts = append(alerts, alert)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}

// DeleteOlderThan удаляет алерты старше указанной даты
func (r *AlertRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM alerts WHERE timestamp < $1`, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
