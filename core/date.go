package core

import "time"

const hoursPerDay = 24

// ToDate truncates t to midnight UTC of the calendar day t falls on in its own location.
func ToDate(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from "from" to "to".
// The result is negative if "to" lies before "from".
func DaysBetween(from, to time.Time) int {
	return int(ToDate(to).Sub(ToDate(from)).Hours() / hoursPerDay)
}

// AddDays moves a calendar date by the given number of days.
func AddDays(date time.Time, days int) time.Time {
	return ToDate(date).AddDate(0, 0, days)
}
