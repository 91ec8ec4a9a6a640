package entities

import (
	"time"
)

// HistoryAction tags an appointment history entry with the lifecycle
// transition that produced it.
type HistoryAction string

const (
	HistoryActionCreated         HistoryAction = "created"
	HistoryActionConfirmed       HistoryAction = "confirmed"
	HistoryActionRescheduled     HistoryAction = "rescheduled"
	HistoryActionCancelled       HistoryAction = "cancelled"
	HistoryActionCompleted       HistoryAction = "completed"
	HistoryActionNoShow          HistoryAction = "no_show"
	HistoryActionUpdated         HistoryAction = "updated"
	HistoryActionNotesUpdated    HistoryAction = "notes_updated"
	HistoryActionFollowUpCreated HistoryAction = "follow_up_created"
)

// AppointmentHistory is one append-only audit entry. Entries are never
// updated or deleted.
type AppointmentHistory struct {
	ID            string        `json:"id" db:"id"`
	AppointmentID string        `json:"appointment_id" db:"appointment_id"`
	Action        HistoryAction `json:"action" db:"action"`
	Details       string        `json:"details" db:"details"`
	ActorID       *string       `json:"actor_id,omitempty" db:"actor_id"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}
