package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hospiq/scheduling/internal/domain/repositories"
	"github.com/hospiq/scheduling/internal/infrastructure/clients/postgres"
	apperrors "github.com/hospiq/scheduling/pkg/errors"
)

var availabilityColumnNames = []string{
	"id", "doctor_id", "day_of_week", "start_minute", "end_minute",
	"specific_date", "is_active", "notes", "created_at", "updated_at",
}

func setupAvailabilityAdapter(t *testing.T) (repositories.AvailabilityRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAvailabilityAdapter(postgres.NewClientFromDB(db)), mock
}

func TestAvailabilityListActiveByDoctorDay(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(availabilityColumnNames).AddRow(
		"slot-1", "doc-1", int(time.Tuesday), 9*60, 12*60,
		nil, true, nil, now, now,
	)
	mock.ExpectQuery(`SELECT .* FROM "availability_slots" WHERE .*specific_date.* ORDER BY "start_minute" ASC`).
		WillReturnRows(rows)

	slots, err := adapter.ListActiveByDoctorDay(context.Background(), "doc-1", time.Tuesday,
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected one slot, got %d", len(slots))
	}
	if slots[0].DayOfWeek != time.Tuesday {
		t.Errorf("expected Tuesday, got %v", slots[0].DayOfWeek)
	}
	if slots[0].StartTime.String() != "09:00" {
		t.Errorf("expected 09:00, got %s", slots[0].StartTime)
	}
	if slots[0].SpecificDate != nil {
		t.Error("expected recurring slot")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAvailabilityGetByIDNotFound(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectQuery(`SELECT .* FROM "availability_slots"`).
		WillReturnRows(sqlmock.NewRows(availabilityColumnNames))

	_, err := adapter.GetByID(context.Background(), "missing")
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}
