package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospiq/scheduling/internal/domain/entities"
	apperrors "github.com/hospiq/scheduling/pkg/errors"
)

func TestConflictsChecksDoctorAndPatientIndependently(t *testing.T) {
	e := newEnv()
	e.seedAppointment("appt-1", "pat-1", "doc-1", tueStart, tueEnd, entities.AppointmentStatusConfirmed)

	window := entities.NewInterval(tueStart, tueEnd)

	got, err := e.conflicts.Conflicts(context.Background(), entities.ResourceKindDoctor, "doc-1", window, "")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = e.conflicts.Conflicts(context.Background(), entities.ResourceKindPatient, "pat-1", window, "")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// An uninvolved doctor sees a clear window.
	got, err = e.conflicts.Conflicts(context.Background(), entities.ResourceKindDoctor, "doc-2", window, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindConflictReturnsEarliest(t *testing.T) {
	e := newEnv()
	e.seedAppointment("appt-late", "pat-1", "doc-1",
		tueStart.Add(time.Hour), tueEnd.Add(time.Hour), entities.AppointmentStatusConfirmed)
	e.seedAppointment("appt-early", "pat-2", "doc-1", tueStart, tueEnd, entities.AppointmentStatusConfirmed)

	window := entities.NewInterval(tueStart, tueEnd.Add(time.Hour))
	got, err := e.conflicts.FindConflict(context.Background(), entities.ResourceKindDoctor, "doc-1", window, "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "appt-early", got.ID)
}

func TestFindConflictNilWhenClear(t *testing.T) {
	e := newEnv()

	got, err := e.conflicts.FindConflict(context.Background(), entities.ResourceKindDoctor, "doc-1",
		entities.NewInterval(tueStart, tueEnd), "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConflictsRejectsInvalidInterval(t *testing.T) {
	e := newEnv()

	_, err := e.conflicts.Conflicts(context.Background(), entities.ResourceKindDoctor, "doc-1",
		entities.NewInterval(tueEnd, tueStart), "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
