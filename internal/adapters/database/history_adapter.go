package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/repositories"
	"github.com/hospiq/scheduling/internal/infrastructure/clients/postgres"
	apperrors "github.com/hospiq/scheduling/pkg/errors"
)

// HistoryAdapter implements the HistoryRepository interface
type HistoryAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewHistoryAdapter creates a new history adapter
func NewHistoryAdapter(client *postgres.Client) repositories.HistoryRepository {
	return &HistoryAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Append appends a history entry
func (a *HistoryAdapter) Append(ctx context.Context, entry *entities.AppointmentHistory) error {
	query, args, err := a.db.Insert("appointment_history").
		Rows(goqu.Record{
			"id":             entry.ID,
			"appointment_id": entry.AppointmentID,
			"action":         entry.Action,
			"details":        entry.Details,
			"actor_id":       entry.ActorID,
			"created_at":     entry.CreatedAt,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err = a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to append history entry", err)
	}

	return nil
}

// ListByAppointment returns an appointment's history, oldest first
func (a *HistoryAdapter) ListByAppointment(ctx context.Context, appointmentID string) ([]*entities.AppointmentHistory, error) {
	query, args, err := a.db.Select(
		"id", "appointment_id", "action", "details", "actor_id", "created_at",
	).From("appointment_history").
		Where(goqu.Ex{"appointment_id": appointmentID}).
		Order(goqu.I("created_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list history", err)
	}
	defer rows.Close()

	var entries []*entities.AppointmentHistory
	for rows.Next() {
		entry := &entities.AppointmentHistory{}
		var actorID sql.NullString
		var details sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.AppointmentID,
			&entry.Action,
			&details,
			&actorID,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan history entry", err)
		}

		if actorID.Valid {
			entry.ActorID = &actorID.String
		}
		entry.Details = details.String
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
