package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tradebot/internal/models"
)

// ============================================================
// SignalRepository Tests
// ============================================================

func TestSignalRepositoryCreate(t *testing.T) {
	ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		signal      *models.Signal
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "success",
			signal: &models.Signal{
				Symbol:     "BTCUSDT",
				Direction:  models.DirectionBuy,
				Confidence: 0.8,
				Source:     models.SourceSentiment,
				Timestamp:  ts,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO signals`).
					WithArgs("BTCUSDT", models.DirectionBuy, 0.8, models.SourceSentiment, ts).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
			},
			expectError: false,
		},
		{
			name: "database error",
			signal: &models.Signal{
				Symbol: "BTCUSDT",
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO signals`).
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

			repo := NewSignalRepository(db)
			err = repo.Create(tt.signal)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if tt.signal.ID != 42 {
					t.Errorf("expected ID=42, got %d", tt.signal.ID)
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestSignalRepositoryLatestSignal(t *testing.T) {
	ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mockSetup func(mock sqlmock.Sqlmock)
		wantNil   bool
		wantErr   bool
	}{
		{
			name: "success",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "symbol", "direction", "confidence", "source", "timestamp"}).
					AddRow(7, "BTCUSDT", "SELL", 0.6, "sentiment", ts)
				mock.ExpectQuery(`SELECT .+ FROM signals WHERE symbol = \$1 AND source = \$2`).
					WithArgs("BTCUSDT", models.SourceSentiment).
					WillReturnRows(rows)
			},
		},
		{
			// Отсутствие строк не ошибка: провайдер сам решает, что делать
			name: "no rows returns nil without error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM signals`).
					WithArgs("BTCUSDT", models.SourceSentiment).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			wantNil: true,
		},
		{
			name: "database error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM signals`).
					WithArgs("BTCUSDT", models.SourceSentiment).
					WillReturnError(errors.New("connection lost"))
			},
			wantNil: true,
			wantErr: true,
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

			repo := NewSignalRepository(db)
			signal, err := repo.LatestSignal(context.Background(), "BTCUSDT", models.SourceSentiment)

			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantNil && signal != nil {
				t.Errorf("expected nil signal, got %+v", signal)
			}
			if !tt.wantNil && (signal == nil || signal.Direction != models.DirectionSell) {
				t.Errorf("unexpected signal: %+v", signal)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestSignalRepositoryGetRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ts := time.Now()
	rows := sqlmock.NewRows([]string{"id", "symbol", "direction", "confidence", "source", "timestamp"}).
		AddRow(2, "BTCUSDT", "BUY", 0.9, "technical", ts).
		AddRow(1, "BTCUSDT", "HOLD", 0.2, "smart_money", ts.Add(-time.Minute))
	mock.ExpectQuery(`SELECT .+ FROM signals WHERE symbol = \$1`).
		WithArgs("BTCUSDT", 10).
		WillReturnRows(rows)

	repo := NewSignalRepository(db)
	signals, err := repo.GetRecent("BTCUSDT", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(signals))
	}
	if signals[0].Source != models.SourceTechnical {
		t.Errorf("expected technical first, got %s", signals[0].Source)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
