package repositories

import (
	"context"

	"github.com/hospiq/scheduling/internal/domain/entities"
)

// HistoryRepository defines the interface for the append-only audit trail
type HistoryRepository interface {
	// Append appends a history entry. Entries are never updated or deleted.
	Append(ctx context.Context, entry *entities.AppointmentHistory) error

	// ListByAppointment returns an appointment's history, oldest first.
	ListByAppointment(ctx context.Context, appointmentID string) ([]*entities.AppointmentHistory, error)
}
