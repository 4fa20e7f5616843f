package projection

import (
	"errors"
	"time"

	"fintrack/internal/core"
)

// ErrMissingAnchor is returned when an item lacks the anchor date its
// (kind, frequency) shape requires. Callers exclude such items from
// next-occurrence displays; validation at creation time should make this
// unreachable.
var ErrMissingAnchor = errors.New("recurring item is missing its anchor date")

// semiMonthlySearchLimit bounds the month-by-month search for the next
// semi-monthly pay date.
const semiMonthlySearchLimit = 1200

// Occurrence is the projected next occurrence of a recurring item.
type Occurrence struct {
	Date time.Time
	// Ended is set when the item's end date has already passed; Date then
	// holds the end date itself so callers can show when the series ended.
	Ended bool
}

// NextOccurrence computes the next occurrence of item on or after today.
// The time of day of today is ignored. When the item carries an end date
// the result never exceeds it.
func NextOccurrence(item core.RecurringItem, today time.Time) (Occurrence, error) {
	day := startOfDay(today)
	a := item.Anchor

	if a.HasEnd() && a.End.Time.Before(day) {
		return Occurrence{Date: a.End.Time, Ended: true}, nil
	}

	switch a.Kind {
	case core.AnchorRenewal:
		if a.LastRenewal.IsZero() {
			return Occurrence{}, ErrMissingAnchor
		}
		return stepUntil(a.LastRenewal.Time, day, a, StepperFor(item.Frequency)), nil
	case core.AnchorSemiMonthly:
		if a.First.IsZero() || a.Second.IsZero() {
			return Occurrence{}, ErrMissingAnchor
		}
		return nextSemiMonthly(a, day), nil
	case core.AnchorStart:
		if a.Start.IsZero() {
			return Occurrence{}, ErrMissingAnchor
		}
		return stepUntil(a.Start.Time, day, a, StepperFor(item.Frequency)), nil
	default:
		return Occurrence{}, ErrMissingAnchor
	}
}

// stepUntil advances from anchor one frequency step at a time until the
// result reaches day, clamping to the anchor's end date when stepping
// would exceed it. Termination is guaranteed: every registered stepper
// moves at least one day forward and the sentinel moves a century.
func stepUntil(anchor, day time.Time, a core.Anchor, step Stepper) Occurrence {
	next := anchor
	for next.Before(day) {
		advanced := step.Step(next)
		if a.HasEnd() && advanced.After(a.End.Time) {
			return Occurrence{Date: a.End.Time}
		}
		next = advanced
	}
	return Occurrence{Date: next}
}

// nextSemiMonthly picks the earlier of the two pay dates that is still
// upcoming. When both raw dates have passed, both are re-anchored forward
// one calendar month at a time until an upcoming date appears; the series
// is cyclic, not a one-shot pair.
func nextSemiMonthly(a core.Anchor, day time.Time) Occurrence {
	first, second := a.First.Time, a.Second.Time
	for i := 0; i < semiMonthlySearchLimit; i++ {
		if a.HasEnd() && first.After(a.End.Time) && second.After(a.End.Time) {
			return Occurrence{Date: a.End.Time}
		}
		if d, ok := earliestUpcoming(day, a, first, second); ok {
			return Occurrence{Date: d}
		}
		first = addCalendarMonths(first, 1)
		second = addCalendarMonths(second, 1)
	}
	// Unreachable for well-formed anchors; keep the old degenerate
	// fallback of the later raw date as a bounded answer.
	return Occurrence{Date: a.Second.Time}
}

func earliestUpcoming(day time.Time, a core.Anchor, candidates ...time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, c := range candidates {
		if c.Before(day) {
			continue
		}
		if a.HasEnd() && c.After(a.End.Time) {
			continue
		}
		if !found || c.Before(best) {
			best = c
			found = true
		}
	}
	return best, found
}

// MonthContribution sums every occurrence of item that falls inside the
// inclusive [monthStart, monthEnd] window. Items missing their anchor
// contribute zero rather than failing.
func MonthContribution(item core.RecurringItem, monthStart, monthEnd time.Time) core.Money {
	ws, we := startOfDay(monthStart), startOfDay(monthEnd)
	a := item.Anchor

	if a.Kind == core.AnchorSemiMonthly {
		return semiMonthlyContribution(item, ws, we)
	}

	var anchor time.Time
	skipAnchor := false
	switch a.Kind {
	case core.AnchorRenewal:
		// The renewal itself already happened; the series starts one
		// step after it.
		anchor = a.LastRenewal.Time
		skipAnchor = true
	case core.AnchorStart:
		anchor = a.Start.Time
	}
	if anchor.IsZero() {
		return core.Money{}
	}

	step := StepperFor(item.Frequency)
	occ := startOfDay(anchor)
	if skipAnchor {
		occ = step.Step(occ)
	}

	var total int64
	for !occ.After(we) {
		if a.HasEnd() && occ.After(a.End.Time) {
			break
		}
		if !occ.Before(ws) {
			total += item.Amount.Cents
		}
		occ = step.Step(occ)
	}
	return core.Money{Cents: total}
}

// semiMonthlyContribution re-anchors each of the two pay dates to the
// target month and tests them independently against the window and the
// end date. Both dates landing in the window contributes twice the amount.
func semiMonthlyContribution(item core.RecurringItem, ws, we time.Time) core.Money {
	a := item.Anchor
	var total int64
	for _, pay := range []core.Date{a.First, a.Second} {
		if pay.IsZero() {
			continue
		}
		day := pay.Day()
		if last := daysInMonth(ws.Year(), ws.Month()); day > last {
			day = last
		}
		occ := time.Date(ws.Year(), ws.Month(), day, 0, 0, 0, 0, ws.Location())
		if occ.Before(ws) || occ.After(we) {
			continue
		}
		if a.HasEnd() && occ.After(a.End.Time) {
			continue
		}
		if occ.Before(startOfDay(pay.Time)) {
			// Window predates the item's first pay date.
			continue
		}
		total += item.Amount.Cents
	}
	return core.Money{Cents: total}
}

// DebtNextPayment computes the next payment date for a debt, keyed off its
// payment day of month and payment frequency. The result is never earlier
// than the debt's creation date.
func DebtNextPayment(debt core.DebtAccount, today time.Time) time.Time {
	day := startOfDay(today)
	created := startOfDay(debt.CreatedAt)
	floor := day
	if created.After(floor) {
		floor = created
	}

	candidate := paymentDateIn(floor.Year(), floor.Month(), debt.PaymentDay, floor.Location())
	for candidate.Before(floor) {
		candidate = advancePaymentCycle(candidate, debt)
	}
	return candidate
}

// paymentDateIn builds the payment date for a given month, clamping the
// payment day to the month's length.
func paymentDateIn(year int, month time.Month, payDay int, loc *time.Location) time.Time {
	if last := daysInMonth(year, month); payDay > last {
		payDay = last
	}
	return time.Date(year, month, payDay, 0, 0, 0, 0, loc)
}

func advancePaymentCycle(from time.Time, debt core.DebtAccount) time.Time {
	switch debt.PaymentFrequency {
	case core.PayWeekly:
		return from.AddDate(0, 0, 7)
	case core.PayBiWeekly:
		return from.AddDate(0, 0, 14)
	case core.PayAnnually:
		return paymentDateIn(from.Year()+1, from.Month(), debt.PaymentDay, from.Location())
	default:
		// Monthly and "other" advance one whole cycle per month. The
		// payment day is re-applied each month so a clamped February
		// payment returns to day 31 in March.
		next := from.AddDate(0, 1, -from.Day()+1) // first of next month
		return paymentDateIn(next.Year(), next.Month(), debt.PaymentDay, from.Location())
	}
}

// MonthWindow returns the inclusive first and last day of a calendar month.
func MonthWindow(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, month, daysInMonth(year, month), 0, 0, 0, 0, time.UTC)
	return start, end
}
