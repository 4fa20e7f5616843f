package core

import "errors"

// An Anchor is the reference date (or dates) from which an item's
// occurrences are computed. It is an explicit tagged variant: exactly one
// shape is populated, selected from (ItemKind, Frequency) at construction
// time, so the projector never has to guess which optional field applies.
type AnchorKind string

const (
	// AnchorStart: income and fixed expenses step forward from a single
	// start date.
	AnchorStart AnchorKind = "start"
	// AnchorRenewal: subscriptions step forward from the most recent
	// renewal, optionally bounded by an end date.
	AnchorRenewal AnchorKind = "renewal"
	// AnchorSemiMonthly: semi-monthly income and fixed expenses carry two
	// pay dates per month.
	AnchorSemiMonthly AnchorKind = "semi-monthly"
)

type Anchor struct {
	Kind AnchorKind

	Start       Date // AnchorStart
	LastRenewal Date // AnchorRenewal
	First       Date // AnchorSemiMonthly, earlier pay date
	Second      Date // AnchorSemiMonthly, later pay date

	// End bounds the occurrence series. Zero means open-ended. Only
	// subscriptions set it through the public constructors.
	End Date
}

// StartAnchor builds the anchor for income and fixed expenses.
func StartAnchor(start Date) Anchor {
	return Anchor{Kind: AnchorStart, Start: start}
}

// RenewalAnchor builds the anchor for subscriptions. end may be zero.
func RenewalAnchor(lastRenewal, end Date) Anchor {
	return Anchor{Kind: AnchorRenewal, LastRenewal: lastRenewal, End: end}
}

// SemiMonthlyAnchor builds the anchor for semi-monthly income and fixed
// expenses.
func SemiMonthlyAnchor(first, second Date) Anchor {
	return Anchor{Kind: AnchorSemiMonthly, First: first, Second: second}
}

// AnchorKindFor returns the anchor variant an item of the given kind and
// frequency must carry.
func AnchorKindFor(kind ItemKind, freq Frequency) AnchorKind {
	if kind == Subscription {
		return AnchorRenewal
	}
	if freq == SemiMonthly {
		return AnchorSemiMonthly
	}
	return AnchorStart
}

// HasEnd reports whether the occurrence series is bounded.
func (a Anchor) HasEnd() bool {
	return !a.End.IsZero()
}

func (a Anchor) Validate() error {
	switch a.Kind {
	case AnchorStart:
		return a.Start.Validate()
	case AnchorRenewal:
		if err := a.LastRenewal.Validate(); err != nil {
			return err
		}
		if a.HasEnd() {
			if err := a.End.Validate(); err != nil {
				return err
			}
			if a.End.Before(a.LastRenewal.Time) {
				return errors.New("end date before last renewal")
			}
		}
		return nil
	case AnchorSemiMonthly:
		if err := a.First.Validate(); err != nil {
			return err
		}
		if err := a.Second.Validate(); err != nil {
			return err
		}
		if a.Second.Before(a.First.Time) {
			return errors.New("second pay date before first")
		}
		return nil
	default:
		return errors.New("unknown anchor kind")
	}
}
