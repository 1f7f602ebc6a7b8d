package models

import (
	"regexp"
	"time"
)

// Slot is one bookable time entry of a capacity record.
type Slot struct {
	Time     string `json:"time"`
	Capacity int    `json:"capacity"`
	Booked   int    `json:"booked"`
}

// SlotAvailability is the caller-facing projection of a Slot.
type SlotAvailability struct {
	Time      string `json:"time"`
	Capacity  int    `json:"capacity"`
	Booked    int    `json:"booked"`
	Available int    `json:"available"`
}

// DailyAvailability is the merged schedule + capacity view for one hub day.
// It is also the cache entry payload and is always rebuildable from the
// durable stores.
type DailyAvailability struct {
	HubID    int64              `json:"hubId"`
	HubName  string             `json:"hubName"`
	Date     string             `json:"date"`
	IsDayOff bool               `json:"isDayOff"`
	Slots    []SlotAvailability `json:"slots"`
}

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slotRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// ValidDate reports whether s is a literal YYYY-MM-DD string naming a real
// calendar date.
func ValidDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidSlotLabel reports whether s is a 24-hour HH:MM label.
func ValidSlotLabel(s string) bool {
	return slotRe.MatchString(s)
}
