package repositories

import (
	"context"
	"time"

	"github.com/hospiq/scheduling/internal/domain/entities"
)

// AvailabilityRepository defines the interface for availability slot operations
type AvailabilityRepository interface {
	// Create creates a new availability slot
	Create(ctx context.Context, slot *entities.AvailabilitySlot) error

	// GetByID retrieves an availability slot by ID
	GetByID(ctx context.Context, id string) (*entities.AvailabilitySlot, error)

	// Update updates an availability slot
	Update(ctx context.Context, slot *entities.AvailabilitySlot) error

	// Delete deletes an availability slot
	Delete(ctx context.Context, id string) error

	// ListActiveByDoctorDay returns the doctor's active slots that can apply
	// on the given date: recurring slots for that weekday plus date-specific
	// slots matching the literal date.
	ListActiveByDoctorDay(ctx context.Context, doctorID string, day time.Weekday, date time.Time) ([]*entities.AvailabilitySlot, error)

	// ListActiveByDoctor returns all of the doctor's active slots.
	ListActiveByDoctor(ctx context.Context, doctorID string) ([]*entities.AvailabilitySlot, error)
}
