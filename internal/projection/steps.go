// Package projection computes occurrence dates and monthly contribution
// totals for recurring cash-flow items and debt payment schedules.
//
// Every function takes an explicit reference date instead of reading the
// wall clock, so results are deterministic and testable.
package projection

import (
	"time"

	"fintrack/internal/core"
)

// Stepper advances from one occurrence of a series to the next. Each
// frequency has its own stepper, registered in frequencySteppers.
type Stepper interface {
	Step(from time.Time) time.Time
}

// dayStepper advances by a fixed number of days (daily, weekly, bi-weekly).
type dayStepper int

func (n dayStepper) Step(from time.Time) time.Time {
	return from.AddDate(0, 0, int(n))
}

// monthStepper advances by whole calendar months, keeping the day of month
// and clamping to the last day of shorter months (Jan 31 -> Feb 28).
type monthStepper int

func (n monthStepper) Step(from time.Time) time.Time {
	return addCalendarMonths(from, int(n))
}

// sentinelStepper advances by 100 years. It backs any frequency value not
// in the registry, so a malformed record can never spin a stepping loop
// forever; the resulting date is far enough out that it drops from every
// projection window.
type sentinelStepper struct{}

func (sentinelStepper) Step(from time.Time) time.Time {
	return from.AddDate(100, 0, 0)
}

var frequencySteppers = map[core.Frequency]Stepper{
	core.Daily:     dayStepper(1),
	core.Weekly:    dayStepper(7),
	core.BiWeekly:  dayStepper(14),
	core.Monthly:   monthStepper(1),
	core.Quarterly: monthStepper(3),
	core.Yearly:    monthStepper(12),
}

// StepperFor returns the stepper for a frequency, falling back to the
// 100-year sentinel for unknown values. Semi-monthly has no stepper; its
// two pay dates are handled directly by the projector.
func StepperFor(freq core.Frequency) Stepper {
	if s, ok := frequencySteppers[freq]; ok {
		return s
	}
	return sentinelStepper{}
}

// addCalendarMonths keeps the day of month where possible and clamps to
// the end of shorter target months.
func addCalendarMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
