package billing

import (
	"sort"
	"time"
)

// occupant is a tenant that survived grouping: linked to an apartment,
// with a parseable move-in date and a stay that touches the billing period.
type occupant struct {
	id   string
	stay Interval
}

// occupancy indexes qualifying occupants by apartment, preserving input
// tenant order.
type occupancy struct {
	byApartment map[string][]occupant
	apartmentOf map[string]string
}

// groupOccupants applies step 3 of the apportionment algorithm: tenants
// without a move-in date are dropped, and tenants whose whole tenancy lies
// outside the billing period are dropped entirely. A missing or malformed
// move-out means still resident, capped at the period end.
func groupOccupants(tenants []Tenant, period Interval) occupancy {
	occ := occupancy{
		byApartment: make(map[string][]occupant),
		apartmentOf: make(map[string]string),
	}
	for _, t := range tenants {
		if t.ApartmentID == "" {
			continue
		}
		moveIn, ok := ParseDate(t.MoveIn)
		if !ok {
			continue
		}
		end := period.End
		if moveOut, ok := ParseDate(t.MoveOut); ok && moveOut.Before(end) {
			end = moveOut
		}
		stay := Interval{Start: moveIn, End: end}
		if _, overlaps := stay.Intersect(period); !overlaps {
			continue
		}
		occ.byApartment[t.ApartmentID] = append(occ.byApartment[t.ApartmentID], occupant{id: t.ID, stay: stay})
		occ.apartmentOf[t.ID] = t.ApartmentID
	}
	return occ
}

// ApportionConsumption allocates metered water consumption across tenants
// for the closed billing period [periodStart, periodEnd].
//
// Each reading's delta is split among the apartment's residents in
// proportion to the days each one was resident within the reading's
// attribution interval (from the later of the period start and the prior
// reading's date, through the reading's own date). A sole occupant
// therefore receives the full delta, and co-occupants (WG) receive a
// day-weighted split rather than a naive equal one.
//
// One row is emitted per qualifying tenant whose apartment has at least
// one linked meter, even when that tenant's total is zero. Tenants whose
// apartment has no meter are absent entirely; that distinction is relied
// on by the cost lookup.
func ApportionConsumption(tenants []Tenant, meters []Meter, readings []Reading, periodStart, periodEnd time.Time) []ConsumptionShare {
	period := NewInterval(periodStart, periodEnd)
	if !period.Valid() {
		return nil
	}

	// Step 1: meters by apartment, unlinked meters dropped.
	metersByApartment := make(map[string][]Meter)
	for _, m := range meters {
		if m.ApartmentID == "" {
			continue
		}
		metersByApartment[m.ApartmentID] = append(metersByApartment[m.ApartmentID], m)
	}

	// Step 2: in-period readings by meter, ascending by date. Readings with
	// a non-positive delta stay in the sequence (they still anchor the next
	// attribution interval) but contribute nothing themselves.
	type datedReading struct {
		date  time.Time
		delta float64
	}
	readingsByMeter := make(map[string][]datedReading)
	for _, r := range readings {
		d, ok := ParseDate(r.Date)
		if !ok || !period.Contains(d) {
			continue
		}
		readingsByMeter[r.MeterID] = append(readingsByMeter[r.MeterID], datedReading{date: d, delta: num(r.Delta)})
	}
	for _, rs := range readingsByMeter {
		sort.Slice(rs, func(i, j int) bool { return rs[i].date.Before(rs[j].date) })
	}

	// Step 3.
	occ := groupOccupants(tenants, period)

	// Step 4: walk each apartment's readings and accumulate shares.
	totals := make(map[string]float64)
	for apartmentID, ms := range metersByApartment {
		residents := occ.byApartment[apartmentID]
		if len(residents) == 0 {
			continue
		}
		for _, m := range ms {
			prev := period.Start
			for _, r := range readingsByMeter[m.ID] {
				attrib := Interval{Start: maxDate(period.Start, prev), End: r.date}
				prev = r.date
				if r.delta <= 0 {
					continue
				}
				overlapDays := make([]int, len(residents))
				totalDays := 0
				for i, res := range residents {
					if ov, ok := res.stay.Intersect(attrib); ok {
						overlapDays[i] = ov.Days()
						totalDays += overlapDays[i]
					}
				}
				if totalDays == 0 {
					// Nobody captured for this sub-period; the delta stays
					// unattributed rather than being forced onto someone.
					continue
				}
				for i, res := range residents {
					if overlapDays[i] > 0 {
						totals[res.id] += r.delta * float64(overlapDays[i]) / float64(totalDays)
					}
				}
			}
		}
	}

	// Step 5: one row per qualifying tenant with a metered apartment, in
	// input order, zeros included.
	out := make([]ConsumptionShare, 0, len(occ.apartmentOf))
	for _, t := range tenants {
		apartmentID, ok := occ.apartmentOf[t.ID]
		if !ok {
			continue
		}
		if len(metersByApartment[apartmentID]) == 0 {
			continue
		}
		out = append(out, ConsumptionShare{TenantID: t.ID, Consumption: totals[t.ID]})
	}
	return out
}
