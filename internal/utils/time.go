package utils

import (
	"fmt"
	"strings"
	"time"
)

const (
	LayoutDate     = "2006-01-02"
	layoutDateTime = "2006-01-02 15:04:05"
)

// ParseDate parses YYYY-MM-DD in local timezone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(LayoutDate, strings.TrimSpace(s), time.Local)
}

// FormatDate formats time to YYYY-MM-DD in local timezone.
func FormatDate(t time.Time) string {
	return t.In(time.Local).Format(LayoutDate)
}

// FormatDateTime formats time to "YYYY-MM-DD HH:MM:SS" in local timezone.
func FormatDateTime(t time.Time) string {
	return t.In(time.Local).Format(layoutDateTime)
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(time.Local).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// CombineDateClock joins a date with an "HH:MM" or "HH:MM:SS" clock in local time.
func CombineDateClock(date time.Time, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	var h, m, s int
	var err error
	switch len(clock) {
	case 5:
		_, err = fmt.Sscanf(clock, "%d:%d", &h, &m)
	case 8:
		_, err = fmt.Sscanf(clock, "%d:%d:%d", &h, &m, &s)
	default:
		err = fmt.Errorf("invalid clock %q", clock)
	}
	if err != nil {
		return time.Time{}, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return time.Time{}, fmt.Errorf("invalid clock %q", clock)
	}
	y, mo, d := date.In(time.Local).Date()
	return time.Date(y, mo, d, h, m, s, 0, time.Local), nil
}
