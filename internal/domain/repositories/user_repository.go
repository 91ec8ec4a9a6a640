package repositories

import (
	"context"

	"github.com/hospiq/scheduling/internal/domain/entities"
)

// DoctorRepository defines the interface for doctor lookups
type DoctorRepository interface {
	// GetByID retrieves a doctor by ID
	GetByID(ctx context.Context, id string) (*entities.Doctor, error)

	// ListActive returns all active doctors in a stable order.
	ListActive(ctx context.Context) ([]*entities.Doctor, error)
}

// PatientRepository defines the interface for patient lookups
type PatientRepository interface {
	// GetByID retrieves a patient by ID
	GetByID(ctx context.Context, id string) (*entities.Patient, error)
}

// ServiceRepository defines the interface for service lookups
type ServiceRepository interface {
	// GetByID retrieves a service by ID
	GetByID(ctx context.Context, id string) (*entities.Service, error)
}
