package tasks

import (
	"strings"
	"time"
)

const defaultHour = 9

// ParseDue resolves the classifier's due_date string into a concrete time in
// the given location. Accepted forms: "today", "tomorrow",
// "2006-01-02 15:04:05", and "2006-01-02". A bare date gets 09:00. The
// boolean is false when nothing parseable remains.
func ParseDue(due string, now time.Time, loc *time.Location) (time.Time, bool) {
	d := strings.ToLower(strings.TrimSpace(due))
	if d == "" {
		return time.Time{}, false
	}

	now = now.In(loc)
	switch d {
	case "today":
		return atDefaultHour(now, loc), true
	case "tomorrow":
		return atDefaultHour(now.AddDate(0, 0, 1), loc), true
	}

	if t, err := time.ParseInLocation("2006-01-02 15:04:05", d, loc); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", d, loc); err == nil {
		return atDefaultHour(t, loc), true
	}
	return time.Time{}, false
}

// NextOccurrence returns the due date of the task spawned when a recurring
// task is completed.
func NextOccurrence(due time.Time, recurrence string) time.Time {
	switch recurrence {
	case "daily":
		return due.AddDate(0, 0, 1)
	case "weekly":
		return due.AddDate(0, 0, 7)
	case "monthly":
		return due.AddDate(0, 1, 0)
	}
	return due
}

func atDefaultHour(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), defaultHour, 0, 0, 0, loc)
}
