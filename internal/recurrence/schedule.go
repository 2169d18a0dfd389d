package recurrence

import (
	"time"

	"github.com/cuongbtq/agency-be/internal/domain"
)

// step returns the k-th occurrence after start. Months are added from start so
// month-end dates do not drift.
func step(start time.Time, value int, unit string, k int) time.Time {
	switch unit {
	case domain.IntervalDay:
		return start.AddDate(0, 0, value*k)
	case domain.IntervalWeek:
		return start.AddDate(0, 0, 7*value*k)
	default:
		return start.AddDate(0, value*k, 0)
	}
}

// Advance walks the schedule forward from due. occurrence is the latest scheduled
// date at or before now and next is the first one strictly after now.
func Advance(due time.Time, value int, unit string, now time.Time) (occurrence, next time.Time, err error) {
	if err := ValidateInterval(value, unit); err != nil {
		return time.Time{}, time.Time{}, err
	}

	occurrence = due
	k := 1
	next = step(due, value, unit, k)
	for !next.After(now) {
		occurrence = next
		k++
		next = step(due, value, unit, k)
	}
	return occurrence, next, nil
}

// ValidateInterval checks a template's recurrence rule
func ValidateInterval(value int, unit string) error {
	if value <= 0 {
		return domain.Validationf("intervalValue must be greater than 0")
	}
	switch unit {
	case domain.IntervalDay, domain.IntervalWeek, domain.IntervalMonth:
		return nil
	}
	return domain.Validationf("intervalUnit must be one of %s, %s, %s", domain.IntervalDay, domain.IntervalWeek, domain.IntervalMonth)
}
