package services

import (
	"context"

	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/repositories"
	apperrors "github.com/hospiq/scheduling/pkg/errors"
)

// ConflictService detects double bookings for one resource side of an
// appointment. Doctor and patient are always checked independently.
type ConflictService struct {
	appointments repositories.AppointmentRepository
}

// NewConflictService creates a new conflict service
func NewConflictService(appointments repositories.AppointmentRepository) *ConflictService {
	return &ConflictService{appointments: appointments}
}

// Conflicts returns every non-terminal appointment of the resource that
// overlaps the interval, earliest first.
func (s *ConflictService) Conflicts(ctx context.Context, kind entities.ResourceKind, resourceID string, interval entities.Interval, excludeID string) ([]*entities.Appointment, error) {
	if !interval.Valid() {
		return nil, apperrors.NewFieldValidationError("end_time", "end time must be after start time")
	}

	return s.appointments.FindOverlapping(ctx, repositories.OverlapQuery{
		Kind:       kind,
		ResourceID: resourceID,
		Window:     interval,
		ExcludeID:  excludeID,
	})
}

// FindConflict returns the first overlapping non-terminal appointment, or nil
// when the window is clear. Callers treat any match as a hard rejection.
func (s *ConflictService) FindConflict(ctx context.Context, kind entities.ResourceKind, resourceID string, interval entities.Interval, excludeID string) (*entities.Appointment, error) {
	conflicts, err := s.Conflicts(ctx, kind, resourceID, interval, excludeID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) == 0 {
		return nil, nil
	}
	return conflicts[0], nil
}
