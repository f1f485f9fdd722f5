package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromLocalRoundTrip(t *testing.T) {
	utc := FromLocal(2026, time.June, 15, 12, 30)
	local := ToLocal(utc)

	assert.Equal(t, 12, local.Hour())
	assert.Equal(t, 30, local.Minute())
	assert.Equal(t, 15, local.Day())
}

func TestFromLocalRoundTripAroundDSTTransitions(t *testing.T) {
	// Clocks jump 03:00→04:00 on 2026-03-29 and fall 04:00→03:00 on
	// 2026-10-25; wall times on either side of both edges must survive the
	// round trip, with the offset flipping between +2 and +3.
	cases := []struct {
		name      string
		month     time.Month
		day       int
		hour, min int
		utcHour   int
		utcDay    int
	}{
		{"before spring jump", time.March, 29, 2, 30, 0, 29},
		{"after spring jump", time.March, 29, 4, 30, 1, 29},
		{"before autumn fallback", time.October, 25, 2, 30, 23, 24},
		{"after autumn fallback", time.October, 25, 4, 30, 2, 25},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			utc := FromLocal(2026, tc.month, tc.day, tc.hour, tc.min)
			assert.Equal(t, tc.utcHour, utc.UTC().Hour())
			assert.Equal(t, tc.utcDay, utc.UTC().Day())

			local := ToLocal(utc)
			assert.Equal(t, tc.hour, local.Hour())
			assert.Equal(t, tc.min, local.Minute())
			assert.Equal(t, tc.day, local.Day())
		})
	}
}

func TestFromLocalSummerWinterOffset(t *testing.T) {
	// Riga is UTC+3 in summer, UTC+2 in winter.
	summer := FromLocal(2026, time.July, 1, 12, 0)
	assert.Equal(t, 9, summer.UTC().Hour())

	winter := FromLocal(2026, time.January, 1, 12, 0)
	assert.Equal(t, 10, winter.UTC().Hour())
}

func TestStartOfLocalDay(t *testing.T) {
	// 01:30 UTC on July 2nd is 04:30 local, so the local day starts July 2nd
	// 00:00 local = July 1st 21:00 UTC.
	instant := time.Date(2026, time.July, 2, 1, 30, 0, 0, time.UTC)
	start := StartOfLocalDay(instant)

	local := ToLocal(start)
	assert.Equal(t, 0, local.Hour())
	assert.Equal(t, 0, local.Minute())
	assert.Equal(t, 2, local.Day())
	assert.Equal(t, 21, start.UTC().Hour())
}

func TestDaysBetween(t *testing.T) {
	a := FromLocal(2026, time.June, 10, 0, 0)
	b := FromLocal(2026, time.June, 13, 0, 0)
	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, -3, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestDaysBetweenAcrossDSTChange(t *testing.T) {
	// The EU spring transition on 2026-03-29 makes that calendar day 23 hours
	// long; it must still count as one day.
	before := FromLocal(2026, time.March, 28, 0, 0)
	after := FromLocal(2026, time.March, 30, 0, 0)
	assert.Equal(t, 2, DaysBetween(before, after))
}

func TestLocation(t *testing.T) {
	loc := Location()
	require.NotNil(t, loc)
	assert.Equal(t, "Europe/Riga", loc.String())
}
