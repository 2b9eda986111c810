package billing

import (
	"math"
	"testing"
)

const floatTol = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTol
}

func shareOf(shares []ConsumptionShare, tenantID string) (ConsumptionShare, bool) {
	for _, s := range shares {
		if s.TenantID == tenantID {
			return s, true
		}
	}
	return ConsumptionShare{}, false
}

func TestSoleOccupantGetsEverything(t *testing.T) {
	tenants := []Tenant{{ID: "t1", Name: "Alleinmieter", ApartmentID: "w1", MoveIn: "2020-03-01"}}
	meters := []Meter{{ID: "m1", ApartmentID: "w1"}}
	readings := []Reading{
		{ID: "r1", MeterID: "m1", Date: "2023-05-10", Count: 1040, Delta: 40},
		{ID: "r2", MeterID: "m1", Date: "2023-12-31", Count: 1180, Delta: 140},
	}

	shares := ApportionConsumption(tenants, meters, readings, d("2023-01-01"), d("2023-12-31"))
	if len(shares) != 1 {
		t.Fatalf("expected 1 share, got %d", len(shares))
	}
	if !almostEqual(shares[0].Consumption, 180) {
		t.Errorf("sole occupant should get the full 180, got %v", shares[0].Consumption)
	}
}

func TestWGYearWithMidYearMoveOut(t *testing.T) {
	// A resident the full year, B resident Jan 1 - Jun 5. One meter, two
	// readings: 100 as of Jun 5 and another 100 as of Dec 31.
	tenants := []Tenant{
		{ID: "a", Name: "A", ApartmentID: "w1", MoveIn: "2022-01-01"},
		{ID: "b", Name: "B", ApartmentID: "w1", MoveIn: "2023-01-01", MoveOut: "2023-06-05"},
	}
	meters := []Meter{{ID: "m1", ApartmentID: "w1"}}
	readings := []Reading{
		{ID: "r1", MeterID: "m1", Date: "2023-06-05", Delta: 100},
		{ID: "r2", MeterID: "m1", Date: "2023-12-31", Delta: 100},
	}

	shares := ApportionConsumption(tenants, meters, readings, d("2023-01-01"), d("2023-12-31"))
	if len(shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(shares))
	}
	a, _ := shareOf(shares, "a")
	b, _ := shareOf(shares, "b")

	if b.Consumption >= a.Consumption {
		t.Errorf("B moved out mid-year, so B (%v) must get less than A (%v)", b.Consumption, a.Consumption)
	}
	if !almostEqual(a.Consumption+b.Consumption, 200) {
		t.Errorf("conservation: A+B = %v, want 200", a.Consumption+b.Consumption)
	}

	// First delta covers Jan 1 - Jun 5 where both were resident the whole
	// sub-period, so it splits evenly; the second covers Jun 5 - Dec 31
	// (210 days for A, 1 overlap day for B on the move-out date itself).
	wantB := 50 + 100*1.0/211.0
	if !almostEqual(b.Consumption, wantB) {
		t.Errorf("B share = %v, want %v", b.Consumption, wantB)
	}
}

func TestMidYearMoveInSplit(t *testing.T) {
	// Full-year tenant sharing with a Jul 1 move-in; a single reading of
	// 100 for the whole year splits by occupancy days (365 vs 184).
	tenants := []Tenant{
		{ID: "full", ApartmentID: "w1", MoveIn: "2023-01-01"},
		{ID: "late", ApartmentID: "w1", MoveIn: "2023-07-01"},
	}
	meters := []Meter{{ID: "m1", ApartmentID: "w1"}}
	readings := []Reading{{ID: "r1", MeterID: "m1", Date: "2023-12-31", Delta: 100}}

	shares := ApportionConsumption(tenants, meters, readings, d("2023-01-01"), d("2023-12-31"))
	full, _ := shareOf(shares, "full")
	late, _ := shareOf(shares, "late")

	if late.Consumption >= full.Consumption {
		t.Errorf("late mover (%v) must get strictly less than the full-year tenant (%v)", late.Consumption, full.Consumption)
	}
	if !almostEqual(full.Consumption+late.Consumption, 100) {
		t.Errorf("conservation: sum = %v, want 100", full.Consumption+late.Consumption)
	}
	if !almostEqual(full.Consumption, 100*365.0/549.0) {
		t.Errorf("full-year share = %v, want %v", full.Consumption, 100*365.0/549.0)
	}
}

func TestConservationAcrossManyOccupants(t *testing.T) {
	tenants := []Tenant{
		{ID: "t1", ApartmentID: "w1", MoveIn: "2023-01-01"},
		{ID: "t2", ApartmentID: "w1", MoveIn: "2023-03-15", MoveOut: "2023-09-30"},
		{ID: "t3", ApartmentID: "w1", MoveIn: "2023-06-01"},
	}
	meters := []Meter{
		{ID: "m1", ApartmentID: "w1"},
		{ID: "m2", ApartmentID: "w1"}, // second meter for the same apartment
	}
	readings := []Reading{
		{ID: "r1", MeterID: "m1", Date: "2023-04-01", Delta: 30.5},
		{ID: "r2", MeterID: "m1", Date: "2023-08-20", Delta: 41.2},
		{ID: "r3", MeterID: "m1", Date: "2023-12-31", Delta: 28.3},
		{ID: "r4", MeterID: "m2", Date: "2023-12-31", Delta: 12.0},
	}

	shares := ApportionConsumption(tenants, meters, readings, d("2023-01-01"), d("2023-12-31"))
	sum := 0.0
	for _, s := range shares {
		sum += s.Consumption
	}
	if !almostEqual(sum, 30.5+41.2+28.3+12.0) {
		t.Errorf("split must sum back to the reading deltas: got %v", sum)
	}
}

func TestOutsidePeriodReadingYieldsZeroRow(t *testing.T) {
	tenants := []Tenant{{ID: "t1", ApartmentID: "w1", MoveIn: "2022-01-01"}}
	meters := []Meter{{ID: "m1", ApartmentID: "w1"}}
	readings := []Reading{
		{ID: "r1", MeterID: "m1", Date: "2022-12-30", Delta: 55}, // before period
		{ID: "r2", MeterID: "m1", Date: "2024-01-02", Delta: 60}, // after period
	}

	shares := ApportionConsumption(tenants, meters, readings, d("2023-01-01"), d("2023-12-31"))
	if len(shares) != 1 {
		t.Fatalf("tenant must still appear with a zero row, got %d rows", len(shares))
	}
	if shares[0].Consumption != 0 {
		t.Errorf("out-of-period readings must contribute 0, got %v", shares[0].Consumption)
	}
}

func TestUnlinkedMeterContributesNothing(t *testing.T) {
	tenants := []Tenant{{ID: "t1", ApartmentID: "w1", MoveIn: "2022-01-01"}}
	meters := []Meter{
		{ID: "m1", ApartmentID: "w1"},
		{ID: "loose"}, // wohnung_id null
	}
	readings := []Reading{
		{ID: "r1", MeterID: "m1", Date: "2023-07-01", Delta: 10},
		{ID: "r2", MeterID: "loose", Date: "2023-07-01", Delta: 999},
	}

	shares := ApportionConsumption(tenants, meters, readings, d("2023-01-01"), d("2023-12-31"))
	if len(shares) != 1 || !almostEqual(shares[0].Consumption, 10) {
		t.Fatalf("unlinked meter leaked into the result: %+v", shares)
	}
}

func TestNoMeterMeansAbsentNotZero(t *testing.T) {
	tenants := []Tenant{
		{ID: "metered", ApartmentID: "w1", MoveIn: "2022-01-01"},
		{ID: "unmetered", ApartmentID: "w2", MoveIn: "2022-01-01"},
	}
	meters := []Meter{{ID: "m1", ApartmentID: "w1"}}
	readings := []Reading{{ID: "r1", MeterID: "m1", Date: "2023-07-01", Delta: 10}}

	shares := ApportionConsumption(tenants, meters, readings, d("2023-01-01"), d("2023-12-31"))
	if len(shares) != 1 {
		t.Fatalf("expected only the metered tenant, got %d rows", len(shares))
	}
	if _, found := shareOf(shares, "unmetered"); found {
		t.Errorf("tenant without an apartment meter must be absent, not zero")
	}
}

func TestGroupingDropsUnusableTenants(t *testing.T) {
	tenants := []Tenant{
		{ID: "ok", ApartmentID: "w1", MoveIn: "2023-01-01"},
		{ID: "no-movein", ApartmentID: "w1"},
		{ID: "long-gone", ApartmentID: "w1", MoveIn: "2019-01-01", MoveOut: "2020-06-30"},
	}
	meters := []Meter{{ID: "m1", ApartmentID: "w1"}}
	readings := []Reading{{ID: "r1", MeterID: "m1", Date: "2023-06-30", Delta: 80}}

	shares := ApportionConsumption(tenants, meters, readings, d("2023-01-01"), d("2023-12-31"))
	if len(shares) != 1 || shares[0].TenantID != "ok" {
		t.Fatalf("only the qualifying tenant should appear: %+v", shares)
	}
	if !almostEqual(shares[0].Consumption, 80) {
		t.Errorf("qualifying tenant should absorb the full delta, got %v", shares[0].Consumption)
	}
}

func TestNegativeAndNaNDeltasContributeNothing(t *testing.T) {
	tenants := []Tenant{{ID: "t1", ApartmentID: "w1", MoveIn: "2022-01-01"}}
	meters := []Meter{{ID: "m1", ApartmentID: "w1"}}
	readings := []Reading{
		{ID: "r1", MeterID: "m1", Date: "2023-03-01", Delta: -5},
		{ID: "r2", MeterID: "m1", Date: "2023-06-01", Delta: math.NaN()},
		{ID: "r3", MeterID: "m1", Date: "2023-09-01", Delta: 25},
	}

	shares := ApportionConsumption(tenants, meters, readings, d("2023-01-01"), d("2023-12-31"))
	if len(shares) != 1 || !almostEqual(shares[0].Consumption, 25) {
		t.Fatalf("bad deltas must coerce to zero contribution: %+v", shares)
	}
}
