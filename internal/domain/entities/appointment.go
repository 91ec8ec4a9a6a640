package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// Terminal reports whether the status is final. Terminal appointments never
// count toward conflict detection.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentStatusCancelled, AppointmentStatusCompleted, AppointmentStatusNoShow:
		return true
	}
	return false
}

// NonTerminalStatuses are the statuses that participate in overlap checks.
func NonTerminalStatuses() []AppointmentStatus {
	return []AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed}
}

// ResourceKind identifies which side of an appointment is being checked
// for double booking.
type ResourceKind string

const (
	ResourceKindDoctor  ResourceKind = "doctor"
	ResourceKindPatient ResourceKind = "patient"
)

// Appointment represents a scheduled appointment between a patient and,
// once assigned, a doctor.
type Appointment struct {
	ID                string            `json:"id" db:"id"`
	PatientID         string            `json:"patient_id" db:"patient_id"`
	DoctorID          *string           `json:"doctor_id,omitempty" db:"doctor_id"`
	ServiceID         string            `json:"service_id" db:"service_id"`
	StartTime         time.Time         `json:"start_time" db:"start_time"`
	EndTime           time.Time         `json:"end_time" db:"end_time"`
	Status            AppointmentStatus `json:"status" db:"status"`
	Reason            string            `json:"reason" db:"reason"`
	Notes             string            `json:"notes" db:"notes"`
	ConsultationNotes string            `json:"consultation_notes" db:"consultation_notes"`
	RescheduledFrom   *string           `json:"rescheduled_from,omitempty" db:"rescheduled_from"`
	RescheduledTo     *string           `json:"rescheduled_to,omitempty" db:"rescheduled_to"`
	FollowUpOf        *string           `json:"follow_up_of,omitempty" db:"follow_up_of"`
	CancelledReason   *string           `json:"cancelled_reason,omitempty" db:"cancelled_reason"`
	CancelledBy       *string           `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancelledAt       *time.Time        `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// Interval returns the appointment's booked time range.
func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

// AppointmentPatch is the explicit allow-list of fields a caller may change on
// an existing appointment without going through a full reschedule. Nil fields
// are left untouched.
type AppointmentPatch struct {
	StartTime *time.Time
	EndTime   *time.Time
	DoctorID  *string
	Reason    *string
	Notes     *string
}

// Empty reports whether the patch changes nothing.
func (p AppointmentPatch) Empty() bool {
	return p.StartTime == nil && p.EndTime == nil && p.DoctorID == nil &&
		p.Reason == nil && p.Notes == nil
}
