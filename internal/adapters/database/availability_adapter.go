package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/repositories"
	"github.com/hospiq/scheduling/internal/infrastructure/clients/postgres"
	apperrors "github.com/hospiq/scheduling/pkg/errors"
)

var availabilityColumns = []interface{}{
	"id", "doctor_id", "day_of_week", "start_minute", "end_minute",
	"specific_date", "is_active", "notes", "created_at", "updated_at",
}

// AvailabilityAdapter implements the AvailabilityRepository interface
type AvailabilityAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAvailabilityAdapter creates a new availability adapter
func NewAvailabilityAdapter(client *postgres.Client) repositories.AvailabilityRepository {
	return &AvailabilityAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new availability slot
func (a *AvailabilityAdapter) Create(ctx context.Context, slot *entities.AvailabilitySlot) error {
	query, args, err := a.db.Insert("availability_slots").
		Rows(availabilityRecord(slot)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err = a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create availability slot", err)
	}

	return nil
}

// GetByID retrieves an availability slot by ID
func (a *AvailabilityAdapter) GetByID(ctx context.Context, id string) (*entities.AvailabilitySlot, error) {
	query, args, err := a.db.Select(availabilityColumns...).
		From("availability_slots").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	row := a.client.DB().QueryRowContext(ctx, query, args...)
	slot, err := scanAvailabilitySlot(row.Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("availability slot with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get availability slot", err)
	}

	return slot, nil
}

// Update updates an availability slot
func (a *AvailabilityAdapter) Update(ctx context.Context, slot *entities.AvailabilitySlot) error {
	record := availabilityRecord(slot)
	delete(record, "id")
	delete(record, "created_at")

	query, args, err := a.db.Update("availability_slots").
		Set(record).
		Where(goqu.Ex{"id": slot.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update availability slot", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("availability slot with id %s not found", slot.ID))
	}

	return nil
}

// Delete deletes an availability slot
func (a *AvailabilityAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("availability_slots").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete availability slot", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("availability slot with id %s not found", id))
	}

	return nil
}

// ListActiveByDoctorDay returns the doctor's active slots applicable on the
// given date: recurring rows for the weekday plus rows pinned to the literal
// date.
func (a *AvailabilityAdapter) ListActiveByDoctorDay(ctx context.Context, doctorID string, day time.Weekday, date time.Time) ([]*entities.AvailabilitySlot, error) {
	query, args, err := a.db.Select(availabilityColumns...).
		From("availability_slots").
		Where(goqu.Ex{"doctor_id": doctorID, "is_active": true, "day_of_week": int(day)}).
		Where(goqu.Or(
			goqu.C("specific_date").IsNull(),
			goqu.C("specific_date").Eq(dateOnly(date)),
		)).
		Order(goqu.I("start_minute").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build day query", err)
	}

	return a.querySlots(ctx, query, args)
}

// ListActiveByDoctor returns all active slots owned by the doctor.
func (a *AvailabilityAdapter) ListActiveByDoctor(ctx context.Context, doctorID string) ([]*entities.AvailabilitySlot, error) {
	query, args, err := a.db.Select(availabilityColumns...).
		From("availability_slots").
		Where(goqu.Ex{"doctor_id": doctorID, "is_active": true}).
		Order(goqu.I("day_of_week").Asc(), goqu.I("start_minute").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	return a.querySlots(ctx, query, args)
}

func (a *AvailabilityAdapter) querySlots(ctx context.Context, query string, args []interface{}) ([]*entities.AvailabilitySlot, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list availability slots", err)
	}
	defer rows.Close()

	var slots []*entities.AvailabilitySlot
	for rows.Next() {
		slot, err := scanAvailabilitySlot(rows.Scan)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan availability slot", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

func availabilityRecord(slot *entities.AvailabilitySlot) goqu.Record {
	record := goqu.Record{
		"id":           slot.ID,
		"doctor_id":    slot.DoctorID,
		"day_of_week":  int(slot.DayOfWeek),
		"start_minute": int(slot.StartTime),
		"end_minute":   int(slot.EndTime),
		"is_active":    slot.IsActive,
		"notes":        slot.Notes,
		"created_at":   slot.CreatedAt,
		"updated_at":   slot.UpdatedAt,
	}
	if slot.SpecificDate != nil {
		record["specific_date"] = dateOnly(*slot.SpecificDate)
	} else {
		record["specific_date"] = nil
	}
	return record
}

func scanAvailabilitySlot(scan func(dest ...interface{}) error) (*entities.AvailabilitySlot, error) {
	slot := &entities.AvailabilitySlot{}
	var day, startMinute, endMinute int
	var specificDate sql.NullTime
	var notes sql.NullString

	err := scan(
		&slot.ID,
		&slot.DoctorID,
		&day,
		&startMinute,
		&endMinute,
		&specificDate,
		&slot.IsActive,
		&notes,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	slot.DayOfWeek = time.Weekday(day)
	slot.StartTime = entities.TimeOfDay(startMinute)
	slot.EndTime = entities.TimeOfDay(endMinute)
	if specificDate.Valid {
		t := specificDate.Time
		slot.SpecificDate = &t
	}
	slot.Notes = notes.String

	return slot, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
