package providers

import (
	"context"
	"errors"
	"time"
)

// ErrLockBusy indicates another request currently holds one of the requested
// resource locks.
var ErrLockBusy = errors.New("resource is locked by another request")

// ResourceLocker serializes the conflict-check-then-insert sequence per
// resource key, so two concurrent requests for the same doctor or patient
// cannot both observe "no conflict" before either commits.
type ResourceLocker interface {
	// Acquire takes all keys or none. The returned release function is safe
	// to call exactly once; the TTL bounds how long a crashed holder can
	// keep the keys.
	Acquire(ctx context.Context, keys []string, ttl time.Duration) (release func(), err error)
}

// Lock key namespaces, one per resource side of an appointment.
const (
	doctorLockPrefix  = "lock:doctor:"
	patientLockPrefix = "lock:patient:"
)

// DoctorLockKey returns the lock key guarding a doctor's bookings.
func DoctorLockKey(doctorID string) string {
	return doctorLockPrefix + doctorID
}

// PatientLockKey returns the lock key guarding a patient's bookings.
func PatientLockKey(patientID string) string {
	return patientLockPrefix + patientID
}
