package database

import "errors"

// Business-rule failures surfaced to callers. The HTTP layer maps these to
// actionable reason strings, so the messages are user-visible.
var (
	ErrHubNotFound         = errors.New("hub not found")
	ErrSlotFull            = errors.New("slot fully booked")
	ErrSlotNotOffered      = errors.New("slot not offered on this date")
	ErrDayOff              = errors.New("day is marked off")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDuplicateBooking    = errors.New("user already booked this slot")
	ErrSlotHasBookings     = errors.New("slot has active bookings")
	ErrCapacityBelowBooked = errors.New("capacity below booked count")
	ErrInvalidDate         = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidSlotLabel    = errors.New("invalid time label, expected HH:MM")
)
