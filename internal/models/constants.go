package models

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	// DefaultSlotCapacity is used when a slot has no explicit capacity row yet.
	DefaultSlotCapacity = 20

	// AvailabilityCacheTTL bounds how long a computed daily view may be served
	// from cache. Writes invalidate explicitly, the TTL only covers drift.
	AvailabilityCacheTTL = 5 * time.Minute

	// CacheOpTimeout caps every cache round-trip so a slow cache cannot stall
	// a booking request.
	CacheOpTimeout = time.Second

	// StoreOpTimeout caps every durable-store mutation.
	StoreOpTimeout = 3 * time.Second

	// ProvisionQueueSize is the buffer of the background provisioner queue.
	ProvisionQueueSize = 100

	// MaxProvisionDays bounds a single pre-generation range.
	MaxProvisionDays = 366
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"
