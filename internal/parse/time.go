package parse

import (
	"fmt"
	"time"
)

// Platform timestamp shapes. The primary layout carries a zone offset
// without a colon; some widget back-ends omit the zone entirely, in which
// case UTC is assumed before converting to the configured location.
const (
	stampLayout       = "2006-01-02T15:04:05-0700"
	stampLayoutNoZone = "2006-01-02T15:04:05"
	clockLayout       = "15:04:05"
)

// parseStamp parses one platform timestamp into the given location.
func parseStamp(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(stampLayout, value); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	t, err := time.ParseInLocation(stampLayoutNoZone, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
	}
	return t.In(loc), nil
}

// parseClock attaches a bare HH:MM:SS to a date in the given location.
// Returns nil for empty values — the platform leaves check-in/out blank
// until they happen.
func parseClock(value string, date time.Time, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	c, err := time.Parse(clockLayout, value)
	if err != nil {
		return nil, fmt.Errorf("unparseable clock %q", value)
	}
	t := time.Date(date.Year(), date.Month(), date.Day(), c.Hour(), c.Minute(), c.Second(), 0, loc)
	return &t, nil
}
