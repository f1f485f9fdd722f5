// Package timezone converts between UTC storage time and the park's civil
// time. The park operates in Latvia, so all "local" values here mean
// Europe/Riga, including its two DST transitions per year.
package timezone

import "time"

const locationName = "Europe/Riga"

var location = mustLoad()

func mustLoad() *time.Location {
	loc, err := time.LoadLocation(locationName)
	if err != nil {
		// tzdata is compiled into the binary on our builds; a missing zone
		// means a broken toolchain, not a runtime condition to recover from.
		panic("timezone: load " + locationName + ": " + err.Error())
	}
	return loc
}

// Location returns the park's IANA location.
func Location() *time.Location {
	return location
}

// ToLocal converts a stored UTC instant to park civil time.
func ToLocal(t time.Time) time.Time {
	return t.In(location)
}

// FromLocal interprets the given wall-clock components as park civil time and
// returns the UTC instant. Ambiguous local times during the autumn fall-back
// hour resolve to the earlier offset; nonexistent spring times are pushed
// forward, both per time.Date semantics. Round-trips with ToLocal for every
// non-ambiguous instant.
func FromLocal(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, location).UTC()
}

// FormatLocal renders a UTC instant with the given layout in park time.
func FormatLocal(t time.Time, layout string) string {
	return t.In(location).Format(layout)
}

// StartOfLocalDay returns the UTC instant at which the given instant's park
// calendar day begins.
func StartOfLocalDay(t time.Time) time.Time {
	local := t.In(location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location).UTC()
}

// LocalDate truncates an instant to its park calendar date, midnight local.
// Useful for civil-date arithmetic: subtracting two LocalDate values and
// dividing by 24h counts calendar days the way an operator would.
func LocalDate(t time.Time) time.Time {
	local := t.In(location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location)
}

// DaysBetween counts whole park calendar days from a to b (negative when b is
// earlier). DST days are 23 or 25 hours long, so the division rounds.
func DaysBetween(a, b time.Time) int {
	hours := LocalDate(b).Sub(LocalDate(a)).Hours()
	if hours >= 0 {
		return int((hours + 12) / 24)
	}
	return -int((-hours + 12) / 24)
}
