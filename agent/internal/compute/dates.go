package compute

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// dateLayouts are tried in order. Values without a zone are taken as UTC.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// Spreadsheet serial dates count days from 1899-12-30. Only values in this
// range are accepted so that bare years ("2024") are not mistaken for serials.
const (
	minSerial = 10000   // 1927-05-18
	maxSerial = 2958465 // 9999-12-31
)

var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// parseDate parses a date field. ok is false for an empty or unparseable value.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minSerial && f <= maxSerial {
		whole := math.Floor(f)
		return serialEpoch.AddDate(0, 0, int(whole)).Add(time.Duration((f - whole) * float64(day))), true
	}
	return time.Time{}, false
}

// dayDelta returns floor((to - from) / 24h). It is negative when to is
// before from.
func dayDelta(from, to time.Time) int {
	return int(math.Floor(float64(to.Sub(from)) / float64(day)))
}
