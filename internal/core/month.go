// Package core holds the pure budgeting engine: domain types, month-key
// arithmetic, aggregation, budget evaluation, filtering and the budget
// rollover policy. Nothing in this package touches storage or the network.
package core

import (
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// ValidDate reports whether s is a real calendar day in YYYY-MM-DD form.
func ValidDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// ValidMonth reports whether s is a month key in YYYY-MM form.
func ValidMonth(s string) bool {
	_, err := time.Parse(monthLayout, s)
	return err == nil
}

// MonthOf returns the month key of a date string. The date is assumed valid;
// the key is its YYYY-MM prefix.
func MonthOf(date string) string {
	if len(date) < len(monthLayout) {
		return date
	}
	return date[:len(monthLayout)]
}

// MonthKey formats a time as a month key.
func MonthKey(t time.Time) string {
	return t.Format(monthLayout)
}

// PrevMonth returns the month key of the calendar month before m,
// rolling the year back when m is a January.
func PrevMonth(m string) string {
	parts := strings.SplitN(m, "-", 2)
	if len(parts) != 2 {
		return m
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return m
	}
	if month == 1 {
		year--
		month = 12
	} else {
		month--
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format(monthLayout)
}

// DaysInMonth returns the day count of a month key, accounting for leap
// years. Day zero of the following month is the last day of this one.
func DaysInMonth(m string) int {
	t, err := time.Parse(monthLayout, m)
	if err != nil {
		return 0
	}
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysLeft returns how many days remain in month m as of now. It is zero
// unless m is the current calendar month.
func DaysLeft(m string, now time.Time) int {
	if MonthKey(now) != m {
		return 0
	}
	left := DaysInMonth(m) - now.Day()
	if left < 0 {
		return 0
	}
	return left
}
