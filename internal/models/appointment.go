package models

import "time"

// Appointment is the durable record of one successful booking. Cancellation
// flips Status to cancelled; the engine never deletes the record.
type Appointment struct {
	ID        int64     `json:"id"`
	Ref       string    `json:"ref"`
	UserID    int64     `json:"userId"`
	HubID     int64     `json:"hubId"`
	Date      string    `json:"date"`
	SlotTime  string    `json:"time"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Active reports whether the appointment still consumes a slot.
func (a *Appointment) Active() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}
