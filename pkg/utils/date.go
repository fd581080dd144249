package utils

import (
	"log"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var jst *time.Location

func init() {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		log.Fatal("Failed to load location", err)
	}
	jst = loc
}

// JST returns the Tokyo Stock Exchange local timezone.
func JST() *time.Location {
	return jst
}

// TimeNowJST returns the current time in JST.
func TimeNowJST() time.Time {
	return time.Now().In(jst)
}

// NormalizeDate reduces a date-like string to YYYY-MM-DD form. Slashes are
// accepted as separators and anything past the date part is cut off.
// Returns "" when the value is empty.
func NormalizeDate(value string) string {
	s := strings.TrimSpace(strings.ReplaceAll(value, "/", "-"))
	if len(s) > 10 {
		s = s[:10]
	}
	return s
}

// ParseDate parses a normalized date string. Returns the zero time and false
// when the value is not a valid date.
func ParseDate(value string) (time.Time, bool) {
	s := NormalizeDate(value)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, s, jst)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// BusinessDaysBetween counts weekdays strictly after start up to and
// including end. Returns 0 when end is not after start.
func BusinessDaysBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	days := 0
	cursor := start
	for cursor.Before(end) {
		cursor = cursor.AddDate(0, 0, 1)
		if wd := cursor.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}
