package domain

import (
	"fmt"
	"math"
	"time"
)

const MetersPerMile = 1609.344

// FormatMiles renders a distance like "1.2 mi".
func FormatMiles(meters float64) string {
	return fmt.Sprintf("%.1f mi", meters/MetersPerMile)
}

// FormatDuration renders a duration in whole minutes like "23 mins" or
// "1 hour 5 mins". Anything under a minute rounds up to "1 min".
func FormatDuration(d time.Duration) string {
	mins := int(math.Round(d.Minutes()))
	if mins < 1 {
		mins = 1
	}

	hours, rest := mins/60, mins%60
	switch {
	case hours == 0:
		return plural(rest, "min")
	case rest == 0:
		return plural(hours, "hour")
	default:
		return plural(hours, "hour") + " " + plural(rest, "min")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// PaceDuration is the time needed to cover meters at pace minutes per mile.
func PaceDuration(meters float64, pace int) time.Duration {
	mins := meters / MetersPerMile * float64(pace)
	return time.Duration(mins * float64(time.Minute))
}
