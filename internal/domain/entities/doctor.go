package entities

import (
	"time"
)

// Seniority is a doctor's rank, carried in the preferences bag.
type Seniority string

const (
	SeniorityChief        Seniority = "chief"
	SenioritySenior       Seniority = "senior"
	SeniorityConsultant   Seniority = "consultant"
	SeniorityPractitioner Seniority = "practitioner"

	// SeniorityAny is the sentinel callers use to opt out of seniority
	// filtering.
	SeniorityAny Seniority = "any"
)

// Rank orders seniorities for auto-assignment tie-breaks. Lower wins:
// chief < senior < consultant < everything else.
func (s Seniority) Rank() int {
	switch s {
	case SeniorityChief:
		return 0
	case SenioritySenior:
		return 1
	case SeniorityConsultant:
		return 2
	}
	return 3
}

// PreferenceKeySeniority is the preferences-bag key holding a doctor's rank.
const PreferenceKeySeniority = "seniority"

// Doctor is the scheduling view of a user with the doctor role.
type Doctor struct {
	ID           string            `json:"id" db:"id"`
	FullName     string            `json:"full_name" db:"full_name"`
	DepartmentID string            `json:"department_id" db:"department_id"`
	Preferences  map[string]string `json:"preferences" db:"preferences"`
	IsActive     bool              `json:"is_active" db:"is_active"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// Seniority reads the doctor's rank from the preferences bag. Doctors without
// one rank as plain practitioners.
func (d *Doctor) Seniority() Seniority {
	if d.Preferences == nil {
		return SeniorityPractitioner
	}
	if s, ok := d.Preferences[PreferenceKeySeniority]; ok && s != "" {
		return Seniority(s)
	}
	return SeniorityPractitioner
}

// Patient is the scheduling view of a user with the patient role.
type Patient struct {
	ID       string `json:"id" db:"id"`
	FullName string `json:"full_name" db:"full_name"`
	Email    string `json:"email" db:"email"`
}

// Service is a bookable hospital service. DepartmentID may be empty for
// cross-department services.
type Service struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	DepartmentID string `json:"department_id" db:"department_id"`
}

// Urgency is the caller's urgency hint on a booking request.
type Urgency string

const (
	UrgencyRoutine Urgency = "routine"
	UrgencyUrgent  Urgency = "urgent"
)

// PreferenceHints carries the optional caller preferences that steer doctor
// ranking. An empty Seniorities slice, or one containing SeniorityAny, means
// no seniority preference.
type PreferenceHints struct {
	Seniorities []Seniority `json:"seniorities,omitempty"`
	Urgency     Urgency     `json:"urgency,omitempty"`
}

// WantsSeniority reports whether an explicit, non-sentinel seniority
// preference was given.
func (h PreferenceHints) WantsSeniority() bool {
	if len(h.Seniorities) == 0 {
		return false
	}
	for _, s := range h.Seniorities {
		if s == SeniorityAny {
			return false
		}
	}
	return true
}
