package models

// ScheduleOverride is the per (hub, date) schedule record. Absence of a
// record means the hub's default slots apply and the day is open.
type ScheduleOverride struct {
	HubID    int64    `json:"hubId"`
	Date     string   `json:"date"`
	IsDayOff bool     `json:"isDayOff"`
	Slots    []string `json:"slots"`
}
