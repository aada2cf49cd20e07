// Package timeutil converts session/audit timestamps between UTC storage and
// the fixed IST display offset.
//
// Expiry dates are deliberately outside this package: they are plain dates
// compared at midnight with no zone conversion. The two clocks are never
// unified.
package timeutil

import "time"

// IST is the fixed UTC+5:30 display offset. Plant sites do not observe DST,
// so a fixed zone is used rather than a tzdata lookup.
var IST = time.FixedZone("IST", 5*3600+30*60)

// ToIST converts a stored UTC timestamp to the IST display offset.
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// ToUTC converts an IST wall-clock timestamp back to UTC for storage.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Midnight truncates t to 00:00 in its own location. Whole-day expiry deltas
// are computed between midnights so partial days never shift a batch across
// the near-expiry boundary.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the whole-day delta from a to b (b - a), both taken at
// midnight in a's location.
func DaysBetween(a, b time.Time) int {
	ma := Midnight(a)
	mb := Midnight(b.In(a.Location()))
	return int(mb.Sub(ma).Hours() / 24)
}
