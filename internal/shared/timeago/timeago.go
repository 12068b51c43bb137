// Package timeago renders post and comment timestamps relative to now.
package timeago

import (
	"strconv"
	"time"
)

const day = 24 * time.Hour

// Format describes how long before now t happened, e.g. "5 m ago". Zero and
// future times read "Just now".
func Format(t, now time.Time) string {
	if t.IsZero() || t.After(now) {
		return "Just now"
	}
	d := now.Sub(t)
	days := int64(d / day)

	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return ago(int64(d/time.Minute), "m")
	case d < day:
		return ago(int64(d/time.Hour), "h")
	case days < 7:
		return ago(days, "d")
	case days < 30:
		return ago(days/7, "w")
	case days < 365:
		return ago(days/30, "mo")
	default:
		return ago(days/365, "y")
	}
}

func ago(n int64, unit string) string {
	return strconv.FormatInt(n, 10) + " " + unit + " ago"
}
