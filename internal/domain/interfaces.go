package domain

import (
	"context"
	"time"

	"hubbook/internal/models"
)

// Store is the durable side of the engine: hub catalog, schedule overrides,
// capacity records and appointments.
type Store interface {
	GetHub(id int64) (*models.Hub, error)
	GetHubs() []*models.Hub

	GetOverride(ctx context.Context, hubID int64, date string) (*models.ScheduleOverride, error)
	UpsertOverride(ctx context.Context, override *models.ScheduleOverride) error

	GetDaySlots(ctx context.Context, hubID int64, date string) ([]models.Slot, error)
	HasDaySlots(ctx context.Context, hubID int64, date string) (bool, error)
	SeedDaySlots(ctx context.Context, hubID int64, date string, labels []string, capacity int) error
	ApplyDaySchedule(ctx context.Context, hubID int64, date string, labels []string, capacity int) error
	SetSlotCapacity(ctx context.Context, hubID int64, date, slot string, capacity int) error

	BookSlot(ctx context.Context, hubID int64, date, slot string, userID int64) (*models.Appointment, error)
	CancelBooking(ctx context.Context, hubID int64, date, slot string, userID int64) error
	CountActiveAppointments(ctx context.Context, hubID int64, date, slot string) (int, error)
	GetUserAppointments(ctx context.Context, userID int64) ([]*models.Appointment, error)
}

// AvailabilityCache is the advisory read-through cache for daily views. A
// nil view with nil error is a miss. Implementations must never be treated
// as a source of truth; the engine swallows every cache error.
type AvailabilityCache interface {
	Get(ctx context.Context, hubID int64, date string) (*models.DailyAvailability, error)
	Set(ctx context.Context, view *models.DailyAvailability, ttl time.Duration) error
	Invalidate(ctx context.Context, hubID int64, date string) error
	InvalidateHub(ctx context.Context, hubID int64) error
}

// EventPublisher fans booking lifecycle events out to in-process consumers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Provisioner accepts background pre-generation work.
type Provisioner interface {
	EnqueueProvision(ctx context.Context, hubID int64, startDate, endDate string) error
}
