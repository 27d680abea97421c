// Package timeutil centralizes the timestamp format shared by every
// durable record: ISO-8601 UTC with microsecond precision. The job
// snapshot, the note index, and the event log all persist this form,
// so formatting and parsing live in one place.
package timeutil

import "time"

// Layout is the on-disk timestamp format.
const Layout = "2006-01-02T15:04:05.000000Z07:00"

// NowISO returns the current time formatted for persistence.
func NowISO() string {
	return ISO(time.Now())
}

// ISO formats a time in the persistence layout, normalized to UTC.
func ISO(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse reads a persisted timestamp. It accepts any RFC 3339
// fractional-second precision, not just the one Layout writes, so
// hand-edited state files still load.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// NowUnix returns wall-clock epoch seconds, the representation jobs
// use for retry eligibility.
func NowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
