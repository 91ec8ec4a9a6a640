package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/providers"
	"github.com/hospiq/scheduling/internal/domain/repositories"
	"github.com/hospiq/scheduling/internal/infrastructure/observability"
	apperrors "github.com/hospiq/scheduling/pkg/errors"
)

const idempotencyKeyPrefix = "booking:idem:"

// BookingService owns the appointment lifecycle: create, confirm, cancel,
// reschedule, complete, no-show and partial updates. Every conflict check and
// its subsequent write run under per-resource locks so concurrent requests
// for the same doctor or patient serialize.
type BookingService struct {
	appointments repositories.AppointmentRepository
	patients     repositories.PatientRepository
	doctors      repositories.DoctorRepository
	services     repositories.ServiceRepository
	conflicts    *ConflictService
	assigner     *AssignmentService
	history      *HistoryService
	locker       providers.ResourceLocker
	idempotency  providers.TTLStore
	clock        providers.Clock
	lockTTL      time.Duration
	idemTTL      time.Duration
}

// NewBookingService creates a new booking service. idempotency may be nil to
// disable duplicate-request detection.
func NewBookingService(
	appointments repositories.AppointmentRepository,
	patients repositories.PatientRepository,
	doctors repositories.DoctorRepository,
	services repositories.ServiceRepository,
	conflicts *ConflictService,
	assigner *AssignmentService,
	history *HistoryService,
	locker providers.ResourceLocker,
	idempotency providers.TTLStore,
	clock providers.Clock,
	lockTTL time.Duration,
	idemTTL time.Duration,
) *BookingService {
	return &BookingService{
		appointments: appointments,
		patients:     patients,
		doctors:      doctors,
		services:     services,
		conflicts:    conflicts,
		assigner:     assigner,
		history:      history,
		locker:       locker,
		idempotency:  idempotency,
		clock:        clock,
		lockTTL:      lockTTL,
		idemTTL:      idemTTL,
	}
}

// CreateInput is a booking request. DoctorID is optional; when absent the
// auto-assignment engine picks one.
type CreateInput struct {
	PatientID      string
	DoctorID       *string
	ServiceID      string
	StartTime      time.Time
	EndTime        time.Time
	Reason         string
	Notes          string
	Hints          entities.PreferenceHints
	ActorID        string
	IdempotencyKey string
}

// CreateResult is the outcome of a booking request. Suggestion is set only
// when no doctor could be bound and an alternative slot was found.
type CreateResult struct {
	Appointment *entities.Appointment
	Suggestion  *Suggestion
}

// Create books an appointment. With a doctor specified the request is
// validated directly against that doctor; otherwise the engine assigns one or
// attaches a suggestion. The appointment is confirmed only when a doctor was
// bound and the window was clear.
func (s *BookingService) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if in.PatientID == "" {
		return nil, apperrors.NewFieldValidationError("patient_id", "patient id is required")
	}
	if in.ServiceID == "" {
		return nil, apperrors.NewFieldValidationError("service_id", "service id is required")
	}
	requested := entities.NewInterval(in.StartTime, in.EndTime)
	if !requested.Valid() {
		return nil, apperrors.NewFieldValidationError("end_time", "end time must be after start time")
	}
	if in.StartTime.Before(s.clock.Now()) {
		return nil, apperrors.NewFieldValidationError("start_time", "cannot book an appointment in the past")
	}

	if existing, err := s.replayIdempotent(ctx, in.IdempotencyKey); err == nil && existing != nil {
		return &CreateResult{Appointment: existing}, nil
	}

	if _, err := s.patients.GetByID(ctx, in.PatientID); err != nil {
		return nil, err
	}
	service, err := s.services.GetByID(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}

	var result *CreateResult
	if in.DoctorID != nil {
		result, err = s.createWithDoctor(ctx, in, service, requested)
	} else {
		result, err = s.createAutoAssigned(ctx, in, requested)
	}
	if err != nil {
		return nil, err
	}

	s.rememberIdempotent(ctx, in.IdempotencyKey, result.Appointment.ID)
	s.history.Record(ctx, result.Appointment.ID, entities.HistoryActionCreated,
		fmt.Sprintf("appointment created with status %s", result.Appointment.Status), actorPtr(in.ActorID))

	return result, nil
}

func (s *BookingService) createWithDoctor(ctx context.Context, in CreateInput, service *entities.Service, requested entities.Interval) (*CreateResult, error) {
	doctor, err := s.doctors.GetByID(ctx, *in.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.IsActive {
		return nil, apperrors.NewValidationError("doctor is not active")
	}
	if service.DepartmentID != "" && doctor.DepartmentID != service.DepartmentID {
		return nil, apperrors.NewFieldValidationError("doctor_id", "doctor does not belong to the service's department")
	}

	release, err := s.acquireLocks(ctx, &doctor.ID, in.PatientID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.rejectIfConflicting(ctx, entities.ResourceKindDoctor, doctor.ID, requested, ""); err != nil {
		return nil, err
	}
	if err := s.rejectIfConflicting(ctx, entities.ResourceKindPatient, in.PatientID, requested, ""); err != nil {
		return nil, err
	}

	appointment := s.newAppointment(in, &doctor.ID, entities.AppointmentStatusConfirmed)
	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, err
	}

	return &CreateResult{Appointment: appointment}, nil
}

func (s *BookingService) createAutoAssigned(ctx context.Context, in CreateInput, requested entities.Interval) (*CreateResult, error) {
	assignment, err := s.assigner.Assign(ctx, in.ServiceID, in.StartTime, in.EndTime, in.Hints)
	if err != nil {
		return nil, err
	}

	if assignment.Assigned() {
		release, err := s.acquireLocks(ctx, &assignment.DoctorID, in.PatientID)
		if err != nil {
			return nil, err
		}
		defer release()

		// Re-validate under the lock: the engine's scan ran outside it.
		if err := s.rejectIfConflicting(ctx, entities.ResourceKindDoctor, assignment.DoctorID, requested, ""); err != nil {
			return nil, err
		}
		if err := s.rejectIfConflicting(ctx, entities.ResourceKindPatient, in.PatientID, requested, ""); err != nil {
			return nil, err
		}

		appointment := s.newAppointment(in, &assignment.DoctorID, entities.AppointmentStatusConfirmed)
		if err := s.appointments.Create(ctx, appointment); err != nil {
			return nil, err
		}
		return &CreateResult{Appointment: appointment}, nil
	}

	// No doctor free: the appointment waits in pending with the suggestion
	// attached for the caller. The patient side must still be clear.
	release, err := s.acquireLocks(ctx, nil, in.PatientID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.rejectIfConflicting(ctx, entities.ResourceKindPatient, in.PatientID, requested, ""); err != nil {
		return nil, err
	}

	appointment := s.newAppointment(in, nil, entities.AppointmentStatusPending)
	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, err
	}

	return &CreateResult{Appointment: appointment, Suggestion: assignment.Suggestion}, nil
}

// Confirm flips a pending appointment to confirmed after re-validating both
// resources. Confirming an appointment with no bound doctor is invalid.
func (s *BookingService) Confirm(ctx context.Context, id, actorID string) (*entities.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appointment.Status == entities.AppointmentStatusConfirmed {
		return appointment, nil
	}
	if appointment.Status.Terminal() {
		return nil, apperrors.NewInvalidTransitionError(string(appointment.Status), string(entities.AppointmentStatusConfirmed),
			fmt.Sprintf("cannot confirm a %s appointment", appointment.Status))
	}
	if appointment.DoctorID == nil {
		return nil, apperrors.NewInvalidTransitionError(string(appointment.Status), string(entities.AppointmentStatusConfirmed),
			"cannot confirm an appointment with no doctor bound")
	}
	if appointment.ServiceID == "" {
		return nil, apperrors.NewInvalidTransitionError(string(appointment.Status), string(entities.AppointmentStatusConfirmed),
			"cannot confirm an appointment with no service")
	}

	release, err := s.acquireLocks(ctx, appointment.DoctorID, appointment.PatientID)
	if err != nil {
		return nil, err
	}
	defer release()

	interval := appointment.Interval()
	if err := s.rejectIfConflicting(ctx, entities.ResourceKindDoctor, *appointment.DoctorID, interval, appointment.ID); err != nil {
		return nil, err
	}
	if err := s.rejectIfConflicting(ctx, entities.ResourceKindPatient, appointment.PatientID, interval, appointment.ID); err != nil {
		return nil, err
	}

	appointment.Status = entities.AppointmentStatusConfirmed
	appointment.UpdatedAt = s.clock.Now()
	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.history.Record(ctx, appointment.ID, entities.HistoryActionConfirmed, "appointment confirmed", actorPtr(actorID))
	return appointment, nil
}

// Cancel cancels a pending or confirmed appointment. Terminal.
func (s *BookingService) Cancel(ctx context.Context, id, reason, actorID string) (*entities.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appointment.Status.Terminal() {
		return nil, apperrors.NewInvalidTransitionError(string(appointment.Status), string(entities.AppointmentStatusCancelled),
			fmt.Sprintf("cannot cancel a %s appointment", appointment.Status))
	}

	now := s.clock.Now()
	appointment.Status = entities.AppointmentStatusCancelled
	appointment.CancelledAt = &now
	if reason != "" {
		appointment.CancelledReason = &reason
	}
	appointment.CancelledBy = actorPtr(actorID)
	appointment.UpdatedAt = now

	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.history.Record(ctx, appointment.ID, entities.HistoryActionCancelled, reason, actorPtr(actorID))
	return appointment, nil
}

// Reschedule cancels the old appointment and creates a linked replacement
// with the same patient, doctor and service on the new interval. The two are
// never merged; the chain stays discoverable through the links.
func (s *BookingService) Reschedule(ctx context.Context, id string, newStart, newEnd time.Time, actorID string) (*entities.Appointment, error) {
	old, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if old.Status.Terminal() {
		return nil, apperrors.NewInvalidTransitionError(string(old.Status), string(entities.AppointmentStatusCancelled),
			fmt.Sprintf("cannot reschedule a %s appointment", old.Status))
	}

	requested := entities.NewInterval(newStart, newEnd)
	if !requested.Valid() {
		return nil, apperrors.NewFieldValidationError("end_time", "end time must be after start time")
	}
	if newStart.Before(s.clock.Now()) {
		return nil, apperrors.NewFieldValidationError("start_time", "cannot reschedule into the past")
	}

	release, err := s.acquireLocks(ctx, old.DoctorID, old.PatientID)
	if err != nil {
		return nil, err
	}
	defer release()

	if old.DoctorID != nil {
		if err := s.rejectIfConflicting(ctx, entities.ResourceKindDoctor, *old.DoctorID, requested, old.ID); err != nil {
			return nil, err
		}
	}
	if err := s.rejectIfConflicting(ctx, entities.ResourceKindPatient, old.PatientID, requested, old.ID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	replacement := &entities.Appointment{
		ID:              uuid.New().String(),
		PatientID:       old.PatientID,
		DoctorID:        old.DoctorID,
		ServiceID:       old.ServiceID,
		StartTime:       newStart,
		EndTime:         newEnd,
		Status:          entities.AppointmentStatusPending,
		Reason:          old.Reason,
		Notes:           old.Notes,
		RescheduledFrom: &old.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.appointments.Create(ctx, replacement); err != nil {
		return nil, err
	}

	cancelReason := fmt.Sprintf("rescheduled to appointment %s", replacement.ID)
	old.Status = entities.AppointmentStatusCancelled
	old.RescheduledTo = &replacement.ID
	old.CancelledReason = &cancelReason
	old.CancelledBy = actorPtr(actorID)
	old.CancelledAt = &now
	old.UpdatedAt = now
	if err := s.appointments.Update(ctx, old); err != nil {
		return nil, err
	}

	s.history.Record(ctx, old.ID, entities.HistoryActionRescheduled, cancelReason, actorPtr(actorID))
	s.history.Record(ctx, replacement.ID, entities.HistoryActionCreated,
		fmt.Sprintf("created by rescheduling appointment %s", old.ID), actorPtr(actorID))

	return replacement, nil
}

// Complete records the consultation. Only the assigned doctor may complete a
// confirmed appointment.
func (s *BookingService) Complete(ctx context.Context, id, actorID, consultationNotes string) (*entities.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appointment.Status != entities.AppointmentStatusConfirmed {
		return nil, apperrors.NewInvalidTransitionError(string(appointment.Status), string(entities.AppointmentStatusCompleted),
			fmt.Sprintf("cannot complete a %s appointment", appointment.Status))
	}
	if appointment.DoctorID == nil || *appointment.DoctorID != actorID {
		return nil, apperrors.NewUnauthorizedError("only the assigned doctor may complete an appointment")
	}

	now := s.clock.Now()
	appointment.Status = entities.AppointmentStatusCompleted
	appointment.CompletedAt = &now
	if consultationNotes != "" {
		appointment.ConsultationNotes = consultationNotes
	}
	appointment.UpdatedAt = now

	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.history.Record(ctx, appointment.ID, entities.HistoryActionCompleted, "appointment completed", &actorID)
	return appointment, nil
}

// NoShow marks a confirmed, already-ended appointment as a no-show. Only the
// assigned doctor may do this.
func (s *BookingService) NoShow(ctx context.Context, id, actorID string) (*entities.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appointment.Status != entities.AppointmentStatusConfirmed {
		return nil, apperrors.NewInvalidTransitionError(string(appointment.Status), string(entities.AppointmentStatusNoShow),
			fmt.Sprintf("cannot mark a %s appointment as no-show", appointment.Status))
	}
	if appointment.DoctorID == nil || *appointment.DoctorID != actorID {
		return nil, apperrors.NewUnauthorizedError("only the assigned doctor may mark a no-show")
	}
	if s.clock.Now().Before(appointment.EndTime) {
		return nil, apperrors.NewValidationError("appointment has not ended yet")
	}

	appointment.Status = entities.AppointmentStatusNoShow
	appointment.UpdatedAt = s.clock.Now()

	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.history.Record(ctx, appointment.ID, entities.HistoryActionNoShow, "patient did not show up", &actorID)
	return appointment, nil
}

// Update applies an allow-listed partial update. Time or doctor changes
// re-validate both resources against the new interval before committing.
func (s *BookingService) Update(ctx context.Context, id string, patch entities.AppointmentPatch, actorID string) (*entities.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return appointment, nil
	}

	if appointment.Status.Terminal() {
		return nil, apperrors.NewInvalidTransitionError(string(appointment.Status), string(appointment.Status),
			fmt.Sprintf("cannot update a %s appointment", appointment.Status))
	}

	newStart := appointment.StartTime
	newEnd := appointment.EndTime
	if patch.StartTime != nil {
		newStart = *patch.StartTime
	}
	if patch.EndTime != nil {
		newEnd = *patch.EndTime
	}
	requested := entities.NewInterval(newStart, newEnd)
	if !requested.Valid() {
		return nil, apperrors.NewFieldValidationError("end_time", "end time must be after start time")
	}

	doctorID := appointment.DoctorID
	if patch.DoctorID != nil {
		doctor, err := s.doctors.GetByID(ctx, *patch.DoctorID)
		if err != nil {
			return nil, err
		}
		if !doctor.IsActive {
			return nil, apperrors.NewValidationError("doctor is not active")
		}
		doctorID = &doctor.ID
	}

	release, err := s.acquireLocks(ctx, doctorID, appointment.PatientID)
	if err != nil {
		return nil, err
	}
	defer release()

	if doctorID != nil {
		if err := s.rejectIfConflicting(ctx, entities.ResourceKindDoctor, *doctorID, requested, appointment.ID); err != nil {
			return nil, err
		}
	}
	if err := s.rejectIfConflicting(ctx, entities.ResourceKindPatient, appointment.PatientID, requested, appointment.ID); err != nil {
		return nil, err
	}

	notesOnly := patch.StartTime == nil && patch.EndTime == nil && patch.DoctorID == nil && patch.Reason == nil

	appointment.StartTime = newStart
	appointment.EndTime = newEnd
	appointment.DoctorID = doctorID
	if patch.Reason != nil {
		appointment.Reason = *patch.Reason
	}
	if patch.Notes != nil {
		appointment.Notes = *patch.Notes
	}
	appointment.UpdatedAt = s.clock.Now()

	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, err
	}

	action := entities.HistoryActionUpdated
	if notesOnly {
		action = entities.HistoryActionNotesUpdated
	}
	s.history.Record(ctx, appointment.ID, action, "appointment updated", actorPtr(actorID))
	return appointment, nil
}

// UpdateNotes replaces the appointment's free-text notes.
func (s *BookingService) UpdateNotes(ctx context.Context, id, notes, actorID string) (*entities.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	appointment.Notes = notes
	appointment.UpdatedAt = s.clock.Now()
	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, err
	}

	s.history.Record(ctx, appointment.ID, entities.HistoryActionNotesUpdated, "notes updated", actorPtr(actorID))
	return appointment, nil
}

// CreateFollowUp books a follow-up visit off a completed appointment,
// keeping the same patient, doctor and service. Only the doctor who completed
// the original may create one.
func (s *BookingService) CreateFollowUp(ctx context.Context, originalID string, start, end time.Time, reason, actorID string) (*entities.Appointment, error) {
	original, err := s.appointments.GetByID(ctx, originalID)
	if err != nil {
		return nil, err
	}

	if original.Status != entities.AppointmentStatusCompleted {
		return nil, apperrors.NewInvalidTransitionError(string(original.Status), string(entities.AppointmentStatusPending),
			"follow-ups can only be created from completed appointments")
	}
	if original.DoctorID == nil || *original.DoctorID != actorID {
		return nil, apperrors.NewUnauthorizedError("only the assigned doctor may create a follow-up")
	}

	requested := entities.NewInterval(start, end)
	if !requested.Valid() {
		return nil, apperrors.NewFieldValidationError("end_time", "end time must be after start time")
	}
	if start.Before(s.clock.Now()) {
		return nil, apperrors.NewFieldValidationError("start_time", "cannot book a follow-up in the past")
	}

	release, err := s.acquireLocks(ctx, original.DoctorID, original.PatientID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.rejectIfConflicting(ctx, entities.ResourceKindDoctor, *original.DoctorID, requested, ""); err != nil {
		return nil, err
	}
	if err := s.rejectIfConflicting(ctx, entities.ResourceKindPatient, original.PatientID, requested, ""); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	followUp := &entities.Appointment{
		ID:         uuid.New().String(),
		PatientID:  original.PatientID,
		DoctorID:   original.DoctorID,
		ServiceID:  original.ServiceID,
		StartTime:  start,
		EndTime:    end,
		Status:     entities.AppointmentStatusConfirmed,
		Reason:     reason,
		FollowUpOf: &original.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.appointments.Create(ctx, followUp); err != nil {
		return nil, err
	}

	s.history.Record(ctx, followUp.ID, entities.HistoryActionCreated,
		fmt.Sprintf("follow-up to appointment %s", original.ID), &actorID)
	s.history.Record(ctx, original.ID, entities.HistoryActionFollowUpCreated,
		fmt.Sprintf("follow-up appointment %s created", followUp.ID), &actorID)

	return followUp, nil
}

// Get returns an appointment by id.
func (s *BookingService) Get(ctx context.Context, id string) (*entities.Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *BookingService) newAppointment(in CreateInput, doctorID *string, status entities.AppointmentStatus) *entities.Appointment {
	now := s.clock.Now()
	return &entities.Appointment{
		ID:        uuid.New().String(),
		PatientID: in.PatientID,
		DoctorID:  doctorID,
		ServiceID: in.ServiceID,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Status:    status,
		Reason:    in.Reason,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// rejectIfConflicting turns the first overlap on the resource into a
// ConflictError carrying the clashing appointment's id.
func (s *BookingService) rejectIfConflicting(ctx context.Context, kind entities.ResourceKind, resourceID string, interval entities.Interval, excludeID string) error {
	conflict, err := s.conflicts.FindConflict(ctx, kind, resourceID, interval, excludeID)
	if err != nil {
		return err
	}
	if conflict != nil {
		return apperrors.NewConflictError(
			fmt.Sprintf("%s already has an overlapping appointment", kind), conflict.ID)
	}
	return nil
}

func (s *BookingService) acquireLocks(ctx context.Context, doctorID *string, patientID string) (func(), error) {
	keys := []string{providers.PatientLockKey(patientID)}
	if doctorID != nil {
		keys = append(keys, providers.DoctorLockKey(*doctorID))
	}

	release, err := s.locker.Acquire(ctx, keys, s.lockTTL)
	if err != nil {
		if errors.Is(err, providers.ErrLockBusy) {
			return nil, apperrors.NewConflictError("another booking for this doctor or patient is in flight", "")
		}
		return nil, apperrors.NewInternalError("failed to acquire booking locks", err)
	}
	return release, nil
}

func (s *BookingService) replayIdempotent(ctx context.Context, key string) (*entities.Appointment, error) {
	if key == "" || s.idempotency == nil {
		return nil, nil
	}

	value, ok, err := s.idempotency.Get(ctx, idempotencyKeyPrefix+key)
	if err != nil || !ok {
		return nil, nil
	}

	return s.appointments.GetByID(ctx, string(value))
}

func (s *BookingService) rememberIdempotent(ctx context.Context, key, appointmentID string) {
	if key == "" || s.idempotency == nil {
		return
	}

	if err := s.idempotency.Set(ctx, idempotencyKeyPrefix+key, []byte(appointmentID), s.idemTTL); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to store idempotency key")
	}
}

func actorPtr(actorID string) *string {
	if actorID == "" {
		return nil
	}
	return &actorID
}
