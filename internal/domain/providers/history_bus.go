package providers

import (
	"context"

	"github.com/hospiq/scheduling/internal/domain/entities"
)

// HistoryChannel is the channel history entries are published on.
const HistoryChannel = "appointments:history"

// HistoryBus carries audit entries from lifecycle transitions to an
// asynchronous writer. Publishing is fire-and-forget from the caller's point
// of view: the publishing side logs and swallows failures.
type HistoryBus interface {
	// Publish publishes a history entry to the bus.
	Publish(ctx context.Context, entry *entities.AppointmentHistory) error

	// Subscribe subscribes to published history entries.
	Subscribe(ctx context.Context) (<-chan *entities.AppointmentHistory, error)

	// Close closes the bus and all subscriptions.
	Close() error
}
