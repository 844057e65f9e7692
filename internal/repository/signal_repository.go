package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tradebot/internal/models"
)

// SignalRepository - работа с таблицей signals: история сигналов источников.
// Сентимент-провайдер читает отсюда последний сигнал внешнего анализатора.
type SignalRepository struct {
	db *sql.DB
}

// NewSignalRepository создает новый экземпляр репозитория
func NewSignalRepository(db *sql.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Create сохраняет сигнал
func (r *SignalRepository) Create(signal *models.Signal) error {
	query := `
		INSERT INTO signals (symbol, direction, confidence, source, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return r.db.QueryRow(
		query,
		signal.Symbol,
		signal.Direction,
		signal.Confidence,
		signal.Source,
		signal.Timestamp,
	).Scan(&signal.ID)
}

// LatestSignal возвращает последний сигнал источника по символу.
// Отсутствие строк не считается ошибкой: возвращается (nil, nil),
// решение о годности сигнала принимает вызывающий.
func (r *SignalRepository) LatestSignal(ctx context.Context, symbol string, source models.SignalSource) (*models.Signal, error) {
	query := `
		SELECT id, symbol, direction, confidence, source, timestamp
		FROM signals
		WHERE symbol = $1 AND source = $2
		ORDER BY timestamp DESC
		LIMIT 1`

	signal := &models.Signal{}
	err := r.db.QueryRowContext(ctx, query, symbol, source).Scan(
		&signal.ID,
		&signal.Symbol,
		&signal.Direction,
		&signal.Confidence,
		&signal.Source,
		&signal.Timestamp,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return signal, nil
}

// GetRecent возвращает последние N сигналов по символу
func (r *SignalRepository) GetRecent(symbol string, limit int) ([]*models.Signal, error) {
	query := `
		SELECT id, symbol, direction, confidence, source, timestamp
		FROM signals
		WHERE symbol = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*models.Signal
	for rows.Next() {
		signal := &models.Signal{}
		err := rows.Scan(
			&signal.ID,
			&signal.Symbol,
			&signal.Direction,
			&signal.Confidence,
			&signal.Source,
			&signal.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		signals = append(signals, signal)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return signals, nil
}

// DeleteOlderThan удаляет сигналы старше указанной даты
func (r *SignalRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM signals WHERE timestamp < $1`, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
