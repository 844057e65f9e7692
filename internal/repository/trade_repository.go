package repository

import (
	"database/sql"
	"errors"
	"time"

	"tradebot/internal/models"
)

// Ошибки репозитория сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRepository - работа с таблицей trades: журнал закрытых сделок
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create создает запись о закрытой сделке
func (r *TradeRepository) Create(trade *models.TradeRecord) error {
	query := `
		INSERT INTO trades (symbol, side, quantity, entry_price, exit_price, pnl, exit_reason, opened_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	return r.db.QueryRow(
		query,
		trade.Symbol,
		trade.Side,
		trade.Quantity,
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Pnl,
		trade.ExitReason,
		trade.OpenedAt,
		trade.ClosedAt,
	).Scan(&trade.ID)
}

// GetByID возвращает сделку по ID
func (r *TradeRepository) GetByID(id int) (*models.TradeRecord, error) {
	query := `
		SELECT id, symbol, side, quantity, entry_price, exit_price, pnl, exit_reason, opened_at, closed_at
		FROM trades
		WHERE id = $1`

	trade := &models.TradeRecord{}
	err := r.db.QueryRow(query, id).Scan(
		&trade.ID,
		&trade.Symbol,
		&trade.Side,
		&trade.Quantity,
		&trade.EntryPrice,
		&trade.ExitPrice,
		&trade.Pnl,
		&trade.ExitReason,
		&trade.OpenedAt,
		&trade.ClosedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}

	return trade, nil
}

// GetRecent возвращает последние N сделок
func (r *TradeRepository) GetRecent(limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT id, symbol, side, quantity, entry_price, exit_price, pnl, exit_reason, opened_at, closed_at
		FROM trades
		ORDER BY closed_at DESC
		LIMIT $1`

	return r.queryTrades(query, limit)
}

// GetBySymbol возвращает последние сделки по символу
func (r *TradeRepository) GetBySymbol(symbol string, limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT id, symbol, side, quantity, entry_price, exit_price, pnl, exit_reason, opened_at, closed_at
		FROM trades
		WHERE symbol = $1
		ORDER BY closed_at DESC
		LIMIT $2`

	return r.queryTrades(query, symbol, limit)
}

// GetClosedSince возвращает сделки, закрытые не раньше указанного
// момента. Используется для восстановления журнала при рестарте.
func (r *TradeRepository) GetClosedSince(since time.Time) ([]*models.TradeRecord, error) {
	query := `
		SELECT id, symbol, side, quantity, entry_price, exit_price, pnl, exit_reason, opened_at, closed_at
		FROM trades
		WHERE closed_at >= $1
		ORDER BY closed_at ASC`

	return r.queryTrades(query, since)
}

// SumPnlSince возвращает суммарный P&L сделок, закрытых с указанного
// момента. Окно дневного убытка.
func (r *TradeRepository) SumPnlSince(since time.Time) (float64, error) {
	query := `SELECT COALESCE(SUM(pnl), 0) FROM trades WHERE closed_at >= $1`

	var total float64
	if err := r.db.QueryRow(query, since).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Count возвращает общее количество сделок
func (r *TradeRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteOlderThan удаляет сделки старше указанной даты
func (r *TradeRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM trades WHERE closed_at < $1`, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *TradeRepository) queryTrades(query string, args ...interface{}) ([]*models.TradeRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.TradeRecord
	for rows.Next() {
		trade := &models.TradeRecord{}
		err := rows.Scan(
			&trade.ID,
			&trade.Symbol,
			&trade.Side,
			&trade.Quantity,
			&trade.EntryPrice,
			&trade.ExitPrice,
			&trade.Pnl,
			&trade.ExitReason,
			&trade.OpenedAt,
			&trade.ClosedAt,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}
