package instruction

import (
	"time"

	"github.com/corebank-dev/corebank/internal/model"
)

// Occurs reports whether a periodic instruction falls due on the given day.
// Occurrences start at the instruction's validity start, anchored to the
// configured month day (and month, for yearly recurrence); an anchor that
// lands before the start advances one period.
func Occurs(inst model.StandingInstruction, on model.Date) bool {
	cur := firstOccurrence(inst)
	if on.Before(cur) {
		return false
	}

	interval := inst.RecurrenceInterval
	if interval < 1 {
		interval = 1
	}

	for !cur.After(on) {
		if cur.Equal(on) {
			return true
		}
		cur = nextOccurrence(cur, inst.RecurrenceFrequency, interval, inst.RecurrenceOnDay)
	}
	return false
}

func firstOccurrence(inst model.StandingInstruction) model.Date {
	start := inst.ValidFrom
	interval := inst.RecurrenceInterval
	if interval < 1 {
		interval = 1
	}

	switch inst.RecurrenceFrequency {
	case model.FrequencyMonths:
		if inst.RecurrenceOnDay > 0 {
			anchored := anchorDay(start.Year(), start.Month(), inst.RecurrenceOnDay)
			if anchored.Before(start) {
				anchored = nextOccurrence(anchored, inst.RecurrenceFrequency, interval, inst.RecurrenceOnDay)
			}
			return anchored
		}
	case model.FrequencyYears:
		if inst.RecurrenceOnDay > 0 && inst.RecurrenceOnMonth > 0 {
			anchored := anchorDay(start.Year(), time.Month(inst.RecurrenceOnMonth), inst.RecurrenceOnDay)
			if anchored.Before(start) {
				anchored = nextOccurrence(anchored, inst.RecurrenceFrequency, interval, inst.RecurrenceOnDay)
			}
			return anchored
		}
	}
	return start
}

func nextOccurrence(cur model.Date, freq model.PeriodFrequency, interval, onDay int) model.Date {
	switch freq {
	case model.FrequencyDays:
		return cur.AddDays(interval)
	case model.FrequencyWeeks:
		return cur.AddDays(7 * interval)
	case model.FrequencyMonths:
		next := cur.AddMonths(interval)
		if onDay > 0 {
			// Re-anchor: a clamped short month (Feb 28 for an on-day of 30)
			// must not pull later months off the anchor.
			next = anchorDay(next.Year(), next.Month(), onDay)
		}
		return next
	case model.FrequencyYears:
		next := cur.AddYears(interval)
		if onDay > 0 {
			next = anchorDay(next.Year(), next.Month(), onDay)
		}
		return next
	}
	return cur.AddDays(interval)
}

func anchorDay(year int, month time.Month, day int) model.Date {
	if limit := model.DaysInMonth(year, month); day > limit {
		day = limit
	}
	return model.NewDate(year, month, day)
}
