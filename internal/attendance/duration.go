package attendance

import (
	"fmt"
	"time"
)

// Elapsed returns how long the session has been open as of now. Zero when
// not checked in.
func (s Status) Elapsed(now time.Time) time.Duration {
	if !s.CheckedIn || s.CheckInTime.IsZero() {
		return 0
	}
	d := now.Sub(s.CheckInTime)
	if d < 0 {
		return 0
	}
	return d
}

// FormatElapsed renders a session duration as HH:MM:SS for display.
func FormatElapsed(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// Worked returns the closed length of a record, or the open length against
// now when the record has no check-out yet.
func (r Record) Worked(now time.Time) time.Duration {
	end := now
	if r.CheckOut != nil {
		end = *r.CheckOut
	}
	d := end.Sub(r.CheckIn)
	if d < 0 {
		return 0
	}
	return d
}
