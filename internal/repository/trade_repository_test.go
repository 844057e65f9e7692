package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tradebot/internal/models"
)

// ============================================================
// TradeRepository Tests
// ============================================================

func TestNewTradeRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewTradeRepository(db)
	if repo == nil {
		t.Fatal("NewTradeRepository returned nil")
	}
	if repo.db != db {
		t.Error("db not set correctly")
	}
}

func TestTradeRepositoryCreate(t *testing.T) {
	opened := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	closed := opened.Add(2 * time.Hour)

	tests := []struct {
		name        string
		trade       *models.TradeRecord
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "success",
			trade: &models.TradeRecord{
				Symbol:     "BTCUSDT",
				Side:       models.SideLong,
				Quantity:   0.01,
				EntryPrice: 45000.0,
				ExitPrice:  49500.0,
				Pnl:        45.0,
				ExitReason: models.ExitTakeProfit,
				OpenedAt:   opened,
				ClosedAt:   closed,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO trades`).
					WithArgs("BTCUSDT", models.SideLong, 0.01, 45000.0, 49500.0, 45.0, models.ExitTakeProfit, opened, closed).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
			},
			expectError: false,
		},
		{
			name: "database error",
			trade: &models.TradeRecord{
				Symbol: "BTCUSDT",
				Side:   models.SideLong,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO trades`).
					WillReturnError(errors.New("database error"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewTradeRepository(db)
			err = repo.Create(tt.trade)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if tt.trade.ID != 1 {
					t.Errorf("expected ID=1, got %d", tt.trade.ID)
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestTradeRepositoryGetByID(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		id          int
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError error
	}{
		{
			name: "success",
			id:   1,
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "symbol", "side", "quantity", "entry_price", "exit_price", "pnl", "exit_reason", "opened_at", "closed_at"}).
					AddRow(1, "BTCUSDT", "long", 0.01, 45000.0, 42750.0, -22.5, "STOP_LOSS", now, now)
				mock.ExpectQuery(`SELECT .+ FROM trades WHERE id = \$1`).
					WithArgs(1).
					WillReturnRows(rows)
			},
			expectError: nil,
		},
		{
			name: "not found",
			id:   999,
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM trades WHERE id = \$1`).
					WithArgs(999).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			expectError: ErrTradeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewTradeRepository(db)
			trade, err := repo.GetByID(tt.id)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected error %v, got %v", tt.expectError, err)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if trade == nil || trade.ID != tt.id {
					t.Errorf("unexpected trade: %+v", trade)
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestTradeRepositoryGetClosedSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	since := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "symbol", "side", "quantity", "entry_price", "exit_price", "pnl", "exit_reason", "opened_at", "closed_at"}).
		AddRow(1, "BTCUSDT", "long", 0.01, 45000.0, 49500.0, 45.0, "TAKE_PROFIT", since, since.Add(time.Hour)).
		AddRow(2, "ETHUSDT", "short", 0.5, 2500.0, 2650.0, -75.0, "STOP_LOSS", since, since.Add(2*time.Hour))
	mock.ExpectQuery(`SELECT .+ FROM trades WHERE closed_at >= \$1`).
		WithArgs(since).
		WillReturnRows(rows)

	repo := NewTradeRepository(db)
	trades, err := repo.GetClosedSince(since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].Symbol != "BTCUSDT" || trades[1].Pnl != -75.0 {
		t.Errorf("unexpected trades: %+v", trades)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTradeRepositorySumPnlSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	since := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(pnl\), 0\) FROM trades`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(-120.5))

	repo := NewTradeRepository(db)
	total, err := repo.SumPnlSince(since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != -120.5 {
		t.Errorf("expected -120.5, got %f", total)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTradeRepositoryDeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	cutoff := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE FROM trades WHERE closed_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	repo := NewTradeRepository(db)
	deleted, err := repo.DeleteOlderThan(cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 7 {
		t.Errorf("expected 7 deleted, got %d", deleted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
