package parse

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/skolegrid/aula-bridge/internal/model"
)

// Platform presence status codes, as observed from the daily overview.
// Anything unlisted maps to unknown.
const (
	presenceNotArrived = 0
	presenceSick       = 1
	presenceVacation   = 2
	presenceArrived    = 3
	presenceFieldTrip  = 4
	presenceSleeping   = 5
	presencePickedUp   = 8
)

// DailyOverview normalizes the presence payload for one child. An empty
// payload yields a single record with status unknown — no data for the day
// is an answer, not an error.
func DailyOverview(payload json.RawMessage, childID string, day time.Time, loc *time.Location) ([]model.PresenceRecord, Warnings, error) {
	var docs []json.RawMessage
	if err := json.Unmarshal(payload, &docs); err != nil {
		return nil, nil, fmt.Errorf("decode presence payload: %w", err)
	}

	date := day.In(loc).Format("2006-01-02")
	if len(docs) == 0 {
		return []model.PresenceRecord{{ChildID: childID, Date: date, Status: model.PresenceUnknown}}, nil, nil
	}

	var warnings Warnings
	records := make([]model.PresenceRecord, 0, len(docs))
	for _, raw := range docs {
		record, warn := oneOverview(raw, childID, date, day, loc)
		if warn != "" {
			warnings.Addf("presence", "%s", warn)
		}
		records = append(records, record)
	}
	return records, warnings, nil
}

func oneOverview(raw json.RawMessage, childID, date string, day time.Time, loc *time.Location) (model.PresenceRecord, string) {
	record := model.PresenceRecord{ChildID: childID, Date: date, Status: model.PresenceUnknown}

	var doc struct {
		Status       *int   `json:"status"`
		CheckInTime  string `json:"checkInTime"`
		CheckOutTime string `json:"checkOutTime"`
		Comment      string `json:"comment"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return record, fmt.Sprintf("overview entry unreadable: %v", err)
	}

	if doc.Status != nil {
		record.Status = presenceStatus(*doc.Status)
	}
	record.Comment = doc.Comment

	warn := ""
	if in, err := parseClock(doc.CheckInTime, day, loc); err == nil {
		record.CheckIn = in
	} else {
		warn = fmt.Sprintf("check-in: %v", err)
	}
	if out, err := parseClock(doc.CheckOutTime, day, loc); err == nil {
		record.CheckOut = out
	} else {
		warn = fmt.Sprintf("check-out: %v", err)
	}
	return record, warn
}

func presenceStatus(code int) model.PresenceStatus {
	switch code {
	case presenceArrived, presenceFieldTrip, presenceSleeping, presencePickedUp:
		return model.PresencePresent
	case presenceSick, presenceVacation:
		return model.PresenceAbsent
	default:
		return model.PresenceUnknown
	}
}
