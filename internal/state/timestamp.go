package state

import "time"

const (
	// timestampLayout is fixed width and always UTC, so lexical order equals chronological order.
	timestampLayout = "2006-01-02T15:04:05.000000-07:00"
	dateLayout      = "2006-01-02"
)

// FormatTimestamp encodes t the way notified sets and cross-references store it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// DateKey renders the buffer bucket key for t in the given zone.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}
