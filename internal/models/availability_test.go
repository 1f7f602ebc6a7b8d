package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidDate(t *testing.T) {
	valid := []string{"2026-09-15", "2026-01-01", "2026-12-31", "2028-02-29"}
	for _, s := range valid {
		assert.True(t, ValidDate(s), s)
	}

	invalid := []string{"", "2026-9-15", "15-09-2026", "2026/09/15", "2026-13-01", "2026-02-30", "2026-09-15T00:00", "tomorrow"}
	for _, s := range invalid {
		assert.False(t, ValidDate(s), s)
	}
}

func TestValidSlotLabel(t *testing.T) {
	valid := []string{"00:00", "09:00", "12:30", "23:59"}
	for _, s := range valid {
		assert.True(t, ValidSlotLabel(s), s)
	}

	invalid := []string{"", "9:00", "24:00", "12:60", "12-30", "12:30:00", "noon"}
	for _, s := range invalid {
		assert.False(t, ValidSlotLabel(s), s)
	}
}

func TestAppointmentActive(t *testing.T) {
	assert.True(t, (&Appointment{Status: StatusPending}).Active())
	assert.True(t, (&Appointment{Status: StatusConfirmed}).Active())
	assert.False(t, (&Appointment{Status: StatusCancelled}).Active())
	assert.False(t, (&Appointment{Status: StatusCompleted}).Active())
}
