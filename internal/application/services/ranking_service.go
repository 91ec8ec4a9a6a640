package services

import (
	"context"

	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/repositories"
	"github.com/hospiq/scheduling/internal/infrastructure/observability"
	apperrors "github.com/hospiq/scheduling/pkg/errors"
)

// RankingService produces the ordered candidate pool for auto-assignment.
// Each filter stage falls back to its input when it would empty the pool:
// an imperfect doctor beats no doctor.
type RankingService struct {
	doctors  repositories.DoctorRepository
	services repositories.ServiceRepository
}

// NewRankingService creates a new ranking service
func NewRankingService(
	doctors repositories.DoctorRepository,
	services repositories.ServiceRepository,
) *RankingService {
	return &RankingService{
		doctors:  doctors,
		services: services,
	}
}

// urgentSeniorities is the rank set favoured for urgent requests.
var urgentSeniorities = []entities.Seniority{entities.SeniorityChief, entities.SenioritySenior}

// Rank returns the eligible doctors for a service, filtered by department,
// then by the caller's seniority preference, then by urgency. The output
// order is the repository's stable doctor order.
func (s *RankingService) Rank(ctx context.Context, serviceID string, hints entities.PreferenceHints) ([]*entities.Doctor, error) {
	service, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	pool, err := s.doctors.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, apperrors.NewNotFoundError("no active doctors available")
	}

	if service.DepartmentID != "" {
		pool = filterWithFallback(pool, func(d *entities.Doctor) bool {
			return d.DepartmentID == service.DepartmentID
		})
	}

	switch {
	case hints.WantsSeniority():
		pool = filterWithFallback(pool, seniorityPredicate(hints.Seniorities))
	case hints.Urgency == entities.UrgencyUrgent:
		pool = filterWithFallback(pool, seniorityPredicate(urgentSeniorities))
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("service_id", serviceID).
		Int("candidates", len(pool)).
		Msg("ranked doctor candidates")

	return pool, nil
}

// filterWithFallback applies pred but returns the input unchanged when the
// result would be empty.
func filterWithFallback(pool []*entities.Doctor, pred func(*entities.Doctor) bool) []*entities.Doctor {
	filtered := make([]*entities.Doctor, 0, len(pool))
	for _, d := range pool {
		if pred(d) {
			filtered = append(filtered, d)
		}
	}
	if len(filtered) == 0 {
		return pool
	}
	return filtered
}

func seniorityPredicate(wanted []entities.Seniority) func(*entities.Doctor) bool {
	set := make(map[entities.Seniority]struct{}, len(wanted))
	for _, s := range wanted {
		set[s] = struct{}{}
	}
	return func(d *entities.Doctor) bool {
		_, ok := set[d.Seniority()]
		return ok
	}
}
