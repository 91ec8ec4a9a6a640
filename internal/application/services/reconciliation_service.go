package services

import (
	"context"
	"fmt"

	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/providers"
	"github.com/hospiq/scheduling/internal/domain/repositories"
	"github.com/hospiq/scheduling/internal/infrastructure/observability"
)

// ReconciliationService is the safety net behind the per-resource locks: if a
// double booking ever lands despite them, the sweep detects it after the fact
// and demotes the later-created appointment back to pending with a fresh
// suggestion for the caller to act on.
type ReconciliationService struct {
	appointments repositories.AppointmentRepository
	doctors      repositories.DoctorRepository
	assigner     *AssignmentService
	history      *HistoryService
	clock        providers.Clock
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	appointments repositories.AppointmentRepository,
	doctors repositories.DoctorRepository,
	assigner *AssignmentService,
	history *HistoryService,
	clock providers.Clock,
) *ReconciliationService {
	return &ReconciliationService{
		appointments: appointments,
		doctors:      doctors,
		assigner:     assigner,
		history:      history,
		clock:        clock,
	}
}

// SweepSummary reports what a reconciliation pass found and fixed.
type SweepSummary struct {
	DoctorsChecked int
	ConflictsFound int
	Demoted        int
}

// Sweep scans every active doctor's non-terminal appointments inside the
// window and demotes the later-created member of each overlapping pair to
// pending.
func (s *ReconciliationService) Sweep(ctx context.Context, window entities.Interval) (*SweepSummary, error) {
	doctors, err := s.doctors.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	logger := observability.LoggerFromContext(ctx)
	summary := &SweepSummary{}

	for _, doctor := range doctors {
		summary.DoctorsChecked++

		appointments, err := s.appointments.FindOverlapping(ctx, repositories.OverlapQuery{
			Kind:       entities.ResourceKindDoctor,
			ResourceID: doctor.ID,
			Window:     window,
		})
		if err != nil {
			return nil, err
		}

		demoted := make(map[string]bool)
		// Sorted by start time, so a pair can only overlap while the second
		// one starts before the first one ends.
		for i := 0; i < len(appointments); i++ {
			if demoted[appointments[i].ID] {
				continue
			}
			for j := i + 1; j < len(appointments); j++ {
				if !appointments[j].StartTime.Before(appointments[i].EndTime) {
					break
				}
				if demoted[appointments[j].ID] {
					continue
				}

				summary.ConflictsFound++
				loser := laterCreated(appointments[i], appointments[j])
				if err := s.demote(ctx, loser); err != nil {
					logger.Warn().Err(err).
						Str("appointment_id", loser.ID).
						Msg("failed to demote double-booked appointment")
					continue
				}
				demoted[loser.ID] = true
				summary.Demoted++
			}
		}
	}

	return summary, nil
}

func (s *ReconciliationService) demote(ctx context.Context, appointment *entities.Appointment) error {
	details := "demoted to pending after double-booking reconciliation"

	assignment, err := s.assigner.Assign(ctx, appointment.ServiceID, appointment.StartTime, appointment.EndTime, entities.PreferenceHints{})
	if err == nil && assignment.Suggestion != nil {
		details = fmt.Sprintf("%s; suggested slot: doctor %s %s - %s",
			details,
			assignment.Suggestion.DoctorID,
			assignment.Suggestion.Start.Format("2006-01-02 15:04"),
			assignment.Suggestion.End.Format("15:04"))
	}

	appointment.Status = entities.AppointmentStatusPending
	appointment.UpdatedAt = s.clock.Now()
	if err := s.appointments.Update(ctx, appointment); err != nil {
		return err
	}

	s.history.Record(ctx, appointment.ID, entities.HistoryActionUpdated, details, nil)
	return nil
}

func laterCreated(a, b *entities.Appointment) *entities.Appointment {
	if b.CreatedAt.After(a.CreatedAt) {
		return b
	}
	return a
}
