package models

import "time"

// DayLayout is the calendar-day format used for session dates and insight IDs.
const DayLayout = "2006-01-02"

// DayString returns the calendar day of t in t's location.
func DayString(t time.Time) string {
	return t.Format(DayLayout)
}

// AddDays returns the calendar day n days after day. Invalid input is returned unchanged.
func AddDays(day string, n int) string {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, n).Format(DayLayout)
}
