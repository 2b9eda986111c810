package billing

import (
	"strings"
	"time"
)

// shortfallTolerance absorbs floating-point noise when comparing paid
// against expected amounts; anything within a cent counts as paid.
const shortfallTolerance = 0.01

// MissedPayments walks every calendar month from the tenant's move-in
// through asOf and reports months where the booked payments fall short of
// the expected rent or Nebenkosten prepayment. The move-in month is
// pro-rated by the occupied-day fraction. Callers pass time.Now() as asOf.
//
// A payment counts toward a month when its date falls in that month, its
// name carries the matching keyword ("miete" for rent, "nebenkosten" for
// prepayments), and — when a note is present, following the generated
// booking convention — the note mentions the tenant's name.
func MissedPayments(tenant Tenant, records []FinanceRecord, asOf time.Time, includeDetails bool) MissedPaymentsResult {
	var res MissedPaymentsResult

	moveIn, ok := ParseDate(tenant.MoveIn)
	if !ok {
		return res
	}
	today := DateOnly(asOf)
	if today.Before(moveIn) {
		return res
	}

	month := time.Date(moveIn.Year(), moveIn.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	for !month.After(lastMonth) {
		monthEnd := month.AddDate(0, 1, -1)

		expectedRent := num(tenant.BaseRent)
		expectedPrepay := prepaymentFor(tenant.Prepayments, monthEnd)
		if month.Equal(time.Date(moveIn.Year(), moveIn.Month(), 1, 0, 0, 0, 0, time.UTC)) {
			occupied := Interval{Start: moveIn, End: monthEnd}
			frac := float64(occupied.Days()) / float64(Interval{Start: month, End: monthEnd}.Days())
			expectedRent *= frac
			expectedPrepay *= frac
		}

		paidRent, paidPrepay := 0.0, 0.0
		for _, rec := range records {
			d, ok := ParseDate(rec.Date)
			if !ok || d.Before(month) || d.After(monthEnd) {
				continue
			}
			if rec.Notes != "" && !strings.Contains(rec.Notes, tenant.Name) {
				continue
			}
			name := strings.ToLower(rec.Name)
			switch {
			case strings.Contains(name, "nebenkosten"):
				paidPrepay += num(rec.Amount)
			case strings.Contains(name, "miete"):
				paidRent += num(rec.Amount)
			}
		}

		if short := expectedRent - paidRent; short > shortfallTolerance {
			res.RentMonths++
			res.TotalAmount += short
			if includeDetails {
				res.Details = append(res.Details, MissedPayment{Month: month.Format("2006-01"), Kind: "miete", Amount: short})
			}
		}
		if short := expectedPrepay - paidPrepay; short > shortfallTolerance {
			res.PrepayMonths++
			res.TotalAmount += short
			if includeDetails {
				res.Details = append(res.Details, MissedPayment{Month: month.Format("2006-01"), Kind: "nebenkosten", Amount: short})
			}
		}

		month = month.AddDate(0, 1, 0)
	}
	return res
}

// prepaymentFor returns the Nebenkosten amount effective at the given
// date: the entry with the latest effective date not after it. No entry
// means no prepayment is expected.
func prepaymentFor(entries []Prepayment, at time.Time) float64 {
	amount := 0.0
	var effective time.Time
	found := false
	for _, e := range entries {
		d, ok := ParseDate(e.Date)
		if !ok || d.After(at) {
			continue
		}
		if !found || d.After(effective) {
			found = true
			effective = d
			amount = num(e.Amount)
		}
	}
	return amount
}
