package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/providers"
	"github.com/hospiq/scheduling/internal/domain/repositories"
	"github.com/hospiq/scheduling/internal/infrastructure/observability"
)

// HistoryService appends the audit trail of lifecycle transitions. Recording
// is best-effort: a failed write is logged and swallowed, never surfaced to
// the transition that triggered it.
type HistoryService struct {
	repo  repositories.HistoryRepository
	bus   providers.HistoryBus
	clock providers.Clock
}

// NewHistoryService creates a new history service. bus may be nil, in which
// case entries are written synchronously.
func NewHistoryService(
	repo repositories.HistoryRepository,
	bus providers.HistoryBus,
	clock providers.Clock,
) *HistoryService {
	return &HistoryService{
		repo:  repo,
		bus:   bus,
		clock: clock,
	}
}

// Record appends a history entry for an appointment. Dispatched through the
// bus when one is configured, written directly otherwise. Never fails the
// caller.
func (s *HistoryService) Record(ctx context.Context, appointmentID string, action entities.HistoryAction, details string, actorID *string) {
	entry := &entities.AppointmentHistory{
		ID:            uuid.New().String(),
		AppointmentID: appointmentID,
		Action:        action,
		Details:       details,
		ActorID:       actorID,
		CreatedAt:     s.clock.Now(),
	}

	logger := observability.LoggerFromContext(ctx)

	if s.bus != nil {
		if err := s.bus.Publish(ctx, entry); err != nil {
			logger.Warn().Err(err).
				Str("appointment_id", appointmentID).
				Str("action", string(action)).
				Msg("failed to publish history entry")
		}
		return
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		logger.Warn().Err(err).
			Str("appointment_id", appointmentID).
			Str("action", string(action)).
			Msg("failed to append history entry")
	}
}

// List returns an appointment's history, oldest first.
func (s *HistoryService) List(ctx context.Context, appointmentID string) ([]*entities.AppointmentHistory, error) {
	return s.repo.ListByAppointment(ctx, appointmentID)
}

// RunWriter consumes entries from the bus and persists them until ctx is
// cancelled. Run it in any process when the asynchronous path is configured.
func (s *HistoryService) RunWriter(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}

	entries, err := s.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	logger := observability.LoggerFromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			if err := s.repo.Append(ctx, entry); err != nil {
				logger.Warn().Err(err).
					Str("appointment_id", entry.AppointmentID).
					Msg("failed to persist history entry from bus")
			}
		}
	}
}
