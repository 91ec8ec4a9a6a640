package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/repositories"
	"github.com/hospiq/scheduling/internal/infrastructure/clients/postgres"
	apperrors "github.com/hospiq/scheduling/pkg/errors"
)

var appointmentColumns = []interface{}{
	"id", "patient_id", "doctor_id", "service_id", "start_time", "end_time",
	"status", "reason", "notes", "consultation_notes",
	"rescheduled_from", "rescheduled_to", "follow_up_of",
	"cancelled_reason", "cancelled_by", "cancelled_at", "completed_at",
	"created_at", "updated_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	query, args, err := a.db.Insert("appointments").
		Rows(appointmentRecord(appointment)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err = a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create appointment", err)
	}

	return nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	row := a.client.DB().QueryRowContext(ctx, query, args...)
	appointment, err := scanAppointment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}

	return appointment, nil
}

// Update updates an appointment
func (a *AppointmentAdapter) Update(ctx context.Context, appointment *entities.Appointment) error {
	record := appointmentRecord(appointment)
	delete(record, "id")
	delete(record, "created_at")

	query, args, err := a.db.Update("appointments").
		Set(record).
		Where(goqu.Ex{"id": appointment.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update appointment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", appointment.ID))
	}

	return nil
}

// FindOverlapping returns the resource's non-terminal appointments whose
// interval overlaps the query window, ordered by start time. The overlap
// predicate is the half-open one: start_time < window.end AND
// end_time > window.start, so back-to-back bookings do not match.
func (a *AppointmentAdapter) FindOverlapping(ctx context.Context, q repositories.OverlapQuery) ([]*entities.Appointment, error) {
	resourceColumn := "patient_id"
	if q.Kind == entities.ResourceKindDoctor {
		resourceColumn = "doctor_id"
	}

	statuses := make([]string, 0, 2)
	for _, s := range entities.NonTerminalStatuses() {
		statuses = append(statuses, string(s))
	}

	ds := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{resourceColumn: q.ResourceID}).
		Where(goqu.C("status").In(statuses)).
		Where(goqu.C("start_time").Lt(q.Window.End)).
		Where(goqu.C("end_time").Gt(q.Window.Start))

	if q.ExcludeID != "" {
		ds = ds.Where(goqu.C("id").Neq(q.ExcludeID))
	}

	ds = ds.Order(goqu.I("start_time").Asc())

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build overlap query", err)
	}

	return a.queryAppointments(ctx, query, args)
}

// ListByDoctor retrieves appointments for a doctor
func (a *AppointmentAdapter) ListByDoctor(ctx context.Context, doctorID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return a.list(ctx, goqu.Ex{"doctor_id": doctorID}, filter)
}

// ListByPatient retrieves appointments for a patient
func (a *AppointmentAdapter) ListByPatient(ctx context.Context, patientID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return a.list(ctx, goqu.Ex{"patient_id": patientID}, filter)
}

func (a *AppointmentAdapter) list(ctx context.Context, owner goqu.Ex, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(owner)

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}

	if filter.From != nil {
		ds = ds.Where(goqu.C("start_time").Gte(*filter.From))
	}

	if filter.To != nil {
		ds = ds.Where(goqu.C("start_time").Lte(*filter.To))
	}

	ds = ds.Order(goqu.I("start_time").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	return a.queryAppointments(ctx, query, args)
}

func (a *AppointmentAdapter) queryAppointments(ctx context.Context, query string, args []interface{}) ([]*entities.Appointment, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	var appointments []*entities.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows.Scan)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}

	return appointments, rows.Err()
}

func appointmentRecord(appointment *entities.Appointment) goqu.Record {
	return goqu.Record{
		"id":                 appointment.ID,
		"patient_id":         appointment.PatientID,
		"doctor_id":          appointment.DoctorID,
		"service_id":         appointment.ServiceID,
		"start_time":         appointment.StartTime,
		"end_time":           appointment.EndTime,
		"status":             appointment.Status,
		"reason":             appointment.Reason,
		"notes":              appointment.Notes,
		"consultation_notes": appointment.ConsultationNotes,
		"rescheduled_from":   appointment.RescheduledFrom,
		"rescheduled_to":     appointment.RescheduledTo,
		"follow_up_of":       appointment.FollowUpOf,
		"cancelled_reason":   appointment.CancelledReason,
		"cancelled_by":       appointment.CancelledBy,
		"cancelled_at":       appointment.CancelledAt,
		"completed_at":       appointment.CompletedAt,
		"created_at":         appointment.CreatedAt,
		"updated_at":         appointment.UpdatedAt,
	}
}

func scanAppointment(scan func(dest ...interface{}) error) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var doctorID, rescheduledFrom, rescheduledTo, followUpOf sql.NullString
	var cancelledReason, cancelledBy sql.NullString
	var reason, notes, consultationNotes sql.NullString
	var cancelledAt, completedAt sql.NullTime

	err := scan(
		&appointment.ID,
		&appointment.PatientID,
		&doctorID,
		&appointment.ServiceID,
		&appointment.StartTime,
		&appointment.EndTime,
		&appointment.Status,
		&reason,
		&notes,
		&consultationNotes,
		&rescheduledFrom,
		&rescheduledTo,
		&followUpOf,
		&cancelledReason,
		&cancelledBy,
		&cancelledAt,
		&completedAt,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if doctorID.Valid {
		appointment.DoctorID = &doctorID.String
	}
	if rescheduledFrom.Valid {
		appointment.RescheduledFrom = &rescheduledFrom.String
	}
	if rescheduledTo.Valid {
		appointment.RescheduledTo = &rescheduledTo.String
	}
	if followUpOf.Valid {
		appointment.FollowUpOf = &followUpOf.String
	}
	if cancelledReason.Valid {
		appointment.CancelledReason = &cancelledReason.String
	}
	if cancelledBy.Valid {
		appointment.CancelledBy = &cancelledBy.String
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		appointment.CancelledAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		appointment.CompletedAt = &t
	}
	appointment.Reason = reason.String
	appointment.Notes = notes.String
	appointment.ConsultationNotes = consultationNotes.String

	return appointment, nil
}
