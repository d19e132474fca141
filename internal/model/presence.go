package model

import "time"

// PresenceStatus is the normalized check-in state for a child on a date.
type PresenceStatus string

const (
	PresencePresent PresenceStatus = "present"
	PresenceAbsent  PresenceStatus = "absent"
	PresenceUnknown PresenceStatus = "unknown"
)

// PresenceRecord is one day's presence snapshot for a child. The platform
// may return nothing for a day; that is represented as status unknown,
// not an error.
type PresenceRecord struct {
	ChildID  string         `json:"child_id"`
	Date     string         `json:"date"` // YYYY-MM-DD
	CheckIn  *time.Time     `json:"check_in,omitempty"`
	CheckOut *time.Time     `json:"check_out,omitempty"`
	Status   PresenceStatus `json:"status"`
	Comment  string         `json:"comment,omitempty"`
}
