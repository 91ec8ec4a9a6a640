package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/providers"
	"github.com/hospiq/scheduling/internal/domain/repositories"
	"github.com/hospiq/scheduling/internal/infrastructure/observability"
	apperrors "github.com/hospiq/scheduling/pkg/errors"
)

// AvailabilityService resolves a doctor's weekly recurring availability onto
// calendar dates and owns the slot CRUD.
type AvailabilityService struct {
	slots repositories.AvailabilityRepository
	clock providers.Clock
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(
	slots repositories.AvailabilityRepository,
	clock providers.Clock,
) *AvailabilityService {
	return &AvailabilityService{
		slots: slots,
		clock: clock,
	}
}

// ActiveSlotsFor returns the wall-clock ranges during which the doctor is
// available on the given date. Date-specific slots apply only on their
// literal date; recurring slots apply on every matching weekday.
func (s *AvailabilityService) ActiveSlotsFor(ctx context.Context, doctorID string, date time.Time) ([]entities.TimeOfDayRange, error) {
	slots, err := s.slots.ListActiveByDoctorDay(ctx, doctorID, date.Weekday(), date)
	if err != nil {
		return nil, err
	}

	var ranges []entities.TimeOfDayRange
	for _, slot := range slots {
		if !slot.AppliesOn(date) {
			continue
		}
		ranges = append(ranges, slot.Range())
	}

	return ranges, nil
}

// IsDoctorAvailableAt reports whether the instant falls inside at least one
// of the doctor's active ranges for that day. Bounds are inclusive.
func (s *AvailabilityService) IsDoctorAvailableAt(ctx context.Context, doctorID string, instant time.Time) (bool, error) {
	ranges, err := s.ActiveSlotsFor(ctx, doctorID, instant)
	if err != nil {
		return false, err
	}

	t := entities.TimeOfDayOf(instant)
	for _, r := range ranges {
		if r.ContainsInclusive(t) {
			return true, nil
		}
	}

	return false, nil
}

// ActiveSlots returns all of the doctor's active slots, recurring and
// date-specific. Used by the auto-assignment engine to project alternatives.
func (s *AvailabilityService) ActiveSlots(ctx context.Context, doctorID string) ([]*entities.AvailabilitySlot, error) {
	return s.slots.ListActiveByDoctor(ctx, doctorID)
}

// SlotInput carries the fields a doctor submits when creating or editing one
// of their availability slots.
type SlotInput struct {
	DoctorID     string
	DayOfWeek    time.Weekday
	StartTime    entities.TimeOfDay
	EndTime      entities.TimeOfDay
	SpecificDate *time.Time
	IsActive     bool
	Notes        string
}

// CreateSlot creates an availability slot. Only the owning doctor may create
// slots, and a new active slot may not overlap an existing active slot on the
// same weekday.
func (s *AvailabilityService) CreateSlot(ctx context.Context, in SlotInput, actorID string) (*entities.AvailabilitySlot, error) {
	if err := s.validateSlotInput(ctx, in, actorID, ""); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	slot := &entities.AvailabilitySlot{
		ID:           uuid.New().String(),
		DoctorID:     in.DoctorID,
		DayOfWeek:    in.DayOfWeek,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		SpecificDate: in.SpecificDate,
		IsActive:     in.IsActive,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("slot_id", slot.ID).
		Str("doctor_id", slot.DoctorID).
		Msg("availability slot created")

	return slot, nil
}

// UpdateSlot edits an availability slot, subject to the same ownership and
// overlap rules as creation.
func (s *AvailabilityService) UpdateSlot(ctx context.Context, slotID string, in SlotInput, actorID string) (*entities.AvailabilitySlot, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.DoctorID != actorID {
		return nil, apperrors.NewUnauthorizedError("only the owning doctor may edit availability slots")
	}

	if err := s.validateSlotInput(ctx, in, actorID, slotID); err != nil {
		return nil, err
	}

	slot.DayOfWeek = in.DayOfWeek
	slot.StartTime = in.StartTime
	slot.EndTime = in.EndTime
	slot.SpecificDate = in.SpecificDate
	slot.IsActive = in.IsActive
	slot.Notes = in.Notes
	slot.UpdatedAt = s.clock.Now()

	if err := s.slots.Update(ctx, slot); err != nil {
		return nil, err
	}

	return slot, nil
}

// DeleteSlot deletes an availability slot owned by the acting doctor.
func (s *AvailabilityService) DeleteSlot(ctx context.Context, slotID, actorID string) error {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.DoctorID != actorID {
		return apperrors.NewUnauthorizedError("only the owning doctor may delete availability slots")
	}

	return s.slots.Delete(ctx, slotID)
}

func (s *AvailabilityService) validateSlotInput(ctx context.Context, in SlotInput, actorID, excludeSlotID string) error {
	if in.DoctorID == "" {
		return apperrors.NewFieldValidationError("doctor_id", "doctor id is required")
	}
	if in.DoctorID != actorID {
		return apperrors.NewUnauthorizedError("only the owning doctor may manage availability slots")
	}
	if !(entities.TimeOfDayRange{Start: in.StartTime, End: in.EndTime}).Valid() {
		return apperrors.NewFieldValidationError("end_time", "end time must be after start time")
	}

	if !in.IsActive {
		return nil
	}

	// No two active slots of one doctor may overlap on the same weekday.
	existing, err := s.slots.ListActiveByDoctor(ctx, in.DoctorID)
	if err != nil {
		return err
	}

	proposed := entities.TimeOfDayRange{Start: in.StartTime, End: in.EndTime}
	for _, other := range existing {
		if other.ID == excludeSlotID || other.DayOfWeek != in.DayOfWeek {
			continue
		}
		if proposed.Overlaps(other.Range()) {
			return apperrors.NewValidationError("slot overlaps an existing active availability slot")
		}
	}

	return nil
}
