package services

import (
	"context"
	"sort"
	"time"

	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/providers"
	"github.com/hospiq/scheduling/internal/infrastructure/observability"
	apperrors "github.com/hospiq/scheduling/pkg/errors"
)

// Suggestion is a conflict-free future slot offered when no doctor is
// immediately free for the requested window.
type Suggestion struct {
	DoctorID string    `json:"doctor_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Assignment is the outcome of auto-assignment: either a bound doctor, or no
// doctor plus an optional suggestion for the caller to offer the patient.
type Assignment struct {
	DoctorID   string
	Suggestion *Suggestion
}

// Assigned reports whether a doctor was bound.
func (a Assignment) Assigned() bool {
	return a.DoctorID != ""
}

// AssignmentService picks a doctor for booking requests that did not specify
// one, or computes the nearest future alternative when nobody is free.
type AssignmentService struct {
	ranker       *RankingService
	availability *AvailabilityService
	conflicts    *ConflictService
	clock        providers.Clock
	lookahead    time.Duration
}

// NewAssignmentService creates a new assignment service. The lookahead bounds
// the alternative-slot search so it always terminates.
func NewAssignmentService(
	ranker *RankingService,
	availability *AvailabilityService,
	conflicts *ConflictService,
	clock providers.Clock,
	lookahead time.Duration,
) *AssignmentService {
	return &AssignmentService{
		ranker:       ranker,
		availability: availability,
		conflicts:    conflicts,
		clock:        clock,
		lookahead:    lookahead,
	}
}

// Assign resolves a doctor for the requested window. Candidates come from the
// ranker; availability narrows them softly; the best-ranked conflict-free
// candidate wins. When every candidate is booked, the earliest conflict-free
// projection of any candidate's availability becomes the suggestion.
func (s *AssignmentService) Assign(ctx context.Context, serviceID string, start, end time.Time, hints entities.PreferenceHints) (Assignment, error) {
	requested := entities.NewInterval(start, end)
	if !requested.Valid() {
		return Assignment{}, apperrors.NewFieldValidationError("end_time", "end time must be after start time")
	}

	candidates, err := s.ranker.Rank(ctx, serviceID, hints)
	if err != nil {
		return Assignment{}, err
	}

	// Availability is a soft preference: when nobody's recurring schedule
	// covers the window, keep the full pool rather than failing outright.
	available := make([]*entities.Doctor, 0, len(candidates))
	for _, d := range candidates {
		ok, err := s.availability.IsDoctorAvailableAt(ctx, d.ID, start)
		if err != nil {
			return Assignment{}, err
		}
		if ok {
			available = append(available, d)
		}
	}
	if len(available) > 0 {
		candidates = available
	}

	var free []*entities.Doctor
	for _, d := range candidates {
		overlapping, err := s.conflicts.Conflicts(ctx, entities.ResourceKindDoctor, d.ID, requested, "")
		if err != nil {
			return Assignment{}, err
		}
		if len(overlapping) == 0 {
			free = append(free, d)
		}
	}

	if len(free) > 0 {
		best := free[0]
		for _, d := range free[1:] {
			if d.Seniority().Rank() < best.Seniority().Rank() {
				best = d
			}
		}
		return Assignment{DoctorID: best.ID}, nil
	}

	suggestion, err := s.suggest(ctx, candidates, requested)
	if err != nil {
		return Assignment{}, err
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("service_id", serviceID).
		Bool("suggestion_found", suggestion != nil).
		Msg("no conflict-free candidate for requested window")

	return Assignment{Suggestion: suggestion}, nil
}

// suggest projects every candidate's active slots onto the nearest future
// date on or after the requested start and returns the earliest conflict-free
// option inside the look-ahead horizon.
func (s *AssignmentService) suggest(ctx context.Context, candidates []*entities.Doctor, requested entities.Interval) (*Suggestion, error) {
	ref := requested.Start
	horizon := ref.Add(s.lookahead)

	var options []Suggestion
	for _, d := range candidates {
		slots, err := s.availability.ActiveSlots(ctx, d.ID)
		if err != nil {
			return nil, err
		}

		for _, slot := range slots {
			projected, ok := projectSlot(slot, ref)
			if !ok || projected.Start.After(horizon) {
				continue
			}

			overlapping, err := s.conflicts.Conflicts(ctx, entities.ResourceKindDoctor, d.ID, projected, "")
			if err != nil {
				return nil, err
			}
			if len(overlapping) == 0 {
				options = append(options, Suggestion{
					DoctorID: d.ID,
					Start:    projected.Start,
					End:      projected.End,
				})
			}
		}
	}

	if len(options) == 0 {
		return nil, nil
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Start.Before(options[j].Start)
	})
	return &options[0], nil
}

// projectSlot maps a slot's weekday and time onto the nearest date on or
// after ref. A projection that would start before ref advances by exactly one
// week; date-specific slots cannot advance and drop out instead.
func projectSlot(slot *entities.AvailabilitySlot, ref time.Time) (entities.Interval, bool) {
	if slot.SpecificDate != nil {
		day := onDate(*slot.SpecificDate, ref)
		start := slot.StartTime.At(day)
		if start.Before(ref) {
			return entities.Interval{}, false
		}
		return entities.Interval{Start: start, End: slot.EndTime.At(day)}, true
	}

	dayDiff := (int(slot.DayOfWeek) - int(ref.Weekday()) + 7) % 7
	day := ref.AddDate(0, 0, dayDiff)
	start := slot.StartTime.At(day)
	if start.Before(ref) {
		start = start.AddDate(0, 0, 7)
	}
	return entities.Interval{Start: start, End: slot.EndTime.At(start)}, true
}

// onDate rebuilds d's calendar date in ref's location.
func onDate(d, ref time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, ref.Location())
}
