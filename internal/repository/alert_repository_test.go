package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tradebot/internal/models"
)

// ============================================================
// AlertRepository Tests
// ============================================================

func TestAlertRepositoryCreate(t *testing.T) {
	ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		alert       *models.Alert
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "success with meta",
			alert: &models.Alert{
				Level:     models.RiskHigh,
				Type:      models.AlertTypeOrderFailed,
				Message:   "order submission failed for BTCUSDT",
				Timestamp: ts,
				Meta:      map[string]interface{}{"symbol": "BTCUSDT"},
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO alerts`).
					WithArgs(models.RiskHigh, models.AlertTypeOrderFailed, "order submission failed for BTCUSDT", ts, sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
			},
			expectError: false,
		},
		{
			name: "success without meta",
			alert: &models.Alert{
				Level:     models.RiskMedium,
				Type:      models.AlertTypeRiskLevel,
				Message:   "risk level raised to MEDIUM",
				Timestamp: ts,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO alerts`).
					WithArgs(models.RiskMedium, models.AlertTypeRiskLevel, "risk level raised to MEDIUM", ts, nil).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
			},
			expectError: false,
		},
		{
			name: "database error",
			alert: &models.Alert{
				Level: models.RiskLow,
				Type:  models.AlertTypeRiskLevel,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO alerts`).
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

			repo := NewAlertRepository(db)
			err = repo.Create(tt.alert)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if tt.alert.ID == 0 {
					t.Error("expected ID to be set")
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestAlertRepositorySend(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO alerts`).
		WithArgs(models.RiskCritical, models.AlertTypeEngineStopped, "engine left RUNNING unexpectedly", ts, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	repo := NewAlertRepository(db)
	err = repo.Send(models.Alert{
		Level:     models.RiskCritical,
		Type:      models.AlertTypeEngineStopped,
		Message:   "engine left RUNNING unexpectedly",
		Timestamp: ts,
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAlertRepositoryGetSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	since := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "level", "type", "message", "timestamp", "meta"}).
		AddRow(2, "HIGH", "ORDER_FAILED", "order failed", since.Add(2*time.Hour), []byte(`{"symbol":"BTCUSDT"}`)).
		AddRow(1, "MEDIUM", "RISK_LEVEL", "risk raised", since.Add(time.Hour), nil)
	mock.ExpectQuery(`SELECT .+ FROM alerts WHERE timestamp >= \$1`).
		WithArgs(since, 50).
		WillReturnRows(rows)

	repo := NewAlertRepository(db)
	alerts, err := repo.GetSince(since, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Meta["symbol"] != "BTCUSDT" {
		t.Errorf("meta not decoded: %+v", alerts[0].Meta)
	}
	if alerts[1].Meta != nil {
		t.Errorf("expected nil meta, got %+v", alerts[1].Meta)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAlertRepositoryDeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	cutoff := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE FROM alerts WHERE timestamp < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	repo := NewAlertRepository(db)
	deleted, err := repo.DeleteOlderThan(cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 12 {
		t.Errorf("expected 12 deleted, got %d", deleted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
