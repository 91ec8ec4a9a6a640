package repositories

import (
	"context"
	"time"

	"github.com/hospiq/scheduling/internal/domain/entities"
)

// OverlapQuery selects the non-terminal appointments of one resource whose
// interval overlaps a proposed window.
type OverlapQuery struct {
	Kind       entities.ResourceKind
	ResourceID string
	Window     entities.Interval

	// ExcludeID drops one appointment from the result, used when
	// re-validating an existing appointment against its own row.
	ExcludeID string
}

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// Create creates a new appointment
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// Update updates an appointment
	Update(ctx context.Context, appointment *entities.Appointment) error

	// FindOverlapping returns the non-terminal appointments matching the
	// query, ordered by start time ascending.
	FindOverlapping(ctx context.Context, q OverlapQuery) ([]*entities.Appointment, error)

	// ListByDoctor retrieves appointments for a doctor
	ListByDoctor(ctx context.Context, doctorID string, filter AppointmentFilter) ([]*entities.Appointment, error)

	// ListByPatient retrieves appointments for a patient
	ListByPatient(ctx context.Context, patientID string, filter AppointmentFilter) ([]*entities.Appointment, error)
}

// AppointmentFilter defines filters for listing appointments
type AppointmentFilter struct {
	Status entities.AppointmentStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
