package service

import (
	"fmt"
	"hash/fnv"
	"time"
)

const dateLayout = "2006-01-02"

var dayIndexEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func addDays(date string, n int) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return formatDate(d.AddDate(0, 0, n))
}

// dayIndex is a stable, non-negative integer for a group and date. The group
// offset keeps groups created on the same day from marching in lockstep.
func dayIndex(groupID string, date time.Time) int {
	days := int(floorDiv(date.Unix()-dayIndexEpoch.Unix(), secondsPerDay))
	h := fnv.New32a()
	h.Write([]byte(groupID))
	idx := days + int(h.Sum32()%1000)
	if idx < 0 {
		idx = -idx
	}
	return idx
}

const secondsPerDay = 24 * 60 * 60

// floorDiv divides rounding toward negative infinity. Unix seconds cover every
// four-digit year, unlike time.Duration which saturates near 292 years.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// weekStart returns the Monday on or before date
func weekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	return date.AddDate(0, 0, -offset)
}

func pick(idx, n int) int {
	return ((idx % n) + n) % n
}
