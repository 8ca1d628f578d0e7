package common

import "time"

// LogTimestampLayout matches the layout used across all log collections.
const LogTimestampLayout = "02-01-2006 03:04:05 PM"

// LogTimestamp formats t for a log row in the given location.
func LogTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(LogTimestampLayout)
}
