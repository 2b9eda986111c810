package billing

import "testing"

func TestCostsSingleTenantFullInvoice(t *testing.T) {
	// Single tenant, 180 m3 metered, invoice 540 EUR at 180 m3 building
	// consumption: price 3/unit, cost share exactly 540.
	tenants := []Tenant{{ID: "t1", ApartmentID: "w1", MoveIn: "2020-01-01"}}
	meters := []Meter{{ID: "m1", ApartmentID: "w1"}}
	readings := []Reading{{ID: "r1", MeterID: "m1", Date: "2023-12-31", Delta: 180}}

	costs := ApportionCosts(tenants, meters, readings, 540, 180, d("2023-01-01"), d("2023-12-31"))
	if len(costs) != 1 {
		t.Fatalf("expected 1 cost row, got %d", len(costs))
	}
	c := costs[0]
	if !almostEqual(c.PricePerUnit, 3) {
		t.Errorf("price per unit = %v, want 3", c.PricePerUnit)
	}
	if !almostEqual(c.Cost, 540) {
		t.Errorf("cost share = %v, want 540", c.Cost)
	}
	if c.WGMember || len(c.CoTenants) != 0 {
		t.Errorf("sole occupant must not be flagged as WG member: %+v", c)
	}
}

func TestCostsWGSumsToInvoiceTotal(t *testing.T) {
	tenants := []Tenant{
		{ID: "a", ApartmentID: "w1", MoveIn: "2022-01-01"},
		{ID: "b", ApartmentID: "w1", MoveIn: "2023-01-01", MoveOut: "2023-06-05"},
	}
	meters := []Meter{{ID: "m1", ApartmentID: "w1"}}
	readings := []Reading{
		{ID: "r1", MeterID: "m1", Date: "2023-06-05", Delta: 100},
		{ID: "r2", MeterID: "m1", Date: "2023-12-31", Delta: 100},
	}

	costs := ApportionCosts(tenants, meters, readings, 600, 200, d("2023-01-01"), d("2023-12-31"))
	if len(costs) != 2 {
		t.Fatalf("expected 2 cost rows, got %d", len(costs))
	}

	sum := 0.0
	var a, b CostShare
	for _, c := range costs {
		sum += c.Cost
		if c.TenantID == "a" {
			a = c
		} else {
			b = c
		}
	}
	if !almostEqual(sum, 600) {
		t.Errorf("cost shares must sum to the invoice total: got %v", sum)
	}
	if a.Cost <= b.Cost {
		t.Errorf("full-year tenant's cost (%v) must exceed the mover's (%v)", a.Cost, b.Cost)
	}
	if !a.WGMember || !b.WGMember {
		t.Errorf("both residents must be flagged as WG members")
	}
	if len(a.CoTenants) != 1 || a.CoTenants[0] != "b" {
		t.Errorf("a's co-tenants = %v, want [b]", a.CoTenants)
	}
	if len(b.CoTenants) != 1 || b.CoTenants[0] != "a" {
		t.Errorf("b's co-tenants = %v, want [a]", b.CoTenants)
	}
}

func TestZeroInvoiceTotalsDegradeToZeroPrice(t *testing.T) {
	tenants := []Tenant{{ID: "t1", ApartmentID: "w1", MoveIn: "2020-01-01"}}
	meters := []Meter{{ID: "m1", ApartmentID: "w1"}}
	readings := []Reading{{ID: "r1", MeterID: "m1", Date: "2023-07-01", Delta: 120}}

	for _, tc := range []struct {
		name              string
		cost, consumption float64
	}{
		{"zero cost", 0, 200},
		{"zero consumption", 600, 0},
		{"both zero", 0, 0},
	} {
		costs := ApportionCosts(tenants, meters, readings, tc.cost, tc.consumption, d("2023-01-01"), d("2023-12-31"))
		if len(costs) != 1 {
			t.Fatalf("%s: expected 1 row, got %d", tc.name, len(costs))
		}
		c := costs[0]
		if tc.consumption == 0 && (c.PricePerUnit != 0 || c.Cost != 0) {
			t.Errorf("%s: want zero price and cost, got price=%v cost=%v", tc.name, c.PricePerUnit, c.Cost)
		}
		// Consumption itself is still apportioned.
		if !almostEqual(c.Consumption, 120) {
			t.Errorf("%s: consumption = %v, want 120", tc.name, c.Consumption)
		}
	}
}

func TestTenantCostLookup(t *testing.T) {
	tenants := []Tenant{
		{ID: "metered", ApartmentID: "w1", MoveIn: "2020-01-01"},
		{ID: "unmetered", ApartmentID: "w2", MoveIn: "2020-01-01"},
	}
	meters := []Meter{{ID: "m1", ApartmentID: "w1"}}
	readings := []Reading{{ID: "r1", MeterID: "m1", Date: "2023-07-01", Delta: 60}}

	got := TenantCost("metered", tenants, meters, readings, 180, 60, d("2023-01-01"), d("2023-12-31"))
	if got == nil {
		t.Fatalf("expected a result for the metered tenant")
	}
	if !almostEqual(got.Cost, 180) {
		t.Errorf("cost = %v, want 180", got.Cost)
	}

	if res := TenantCost("unmetered", tenants, meters, readings, 180, 60, d("2023-01-01"), d("2023-12-31")); res != nil {
		t.Errorf("tenant without an apartment meter must yield nil, got %+v", res)
	}
	if res := TenantCost("ghost", tenants, meters, readings, 180, 60, d("2023-01-01"), d("2023-12-31")); res != nil {
		t.Errorf("unknown tenant must yield nil, got %+v", res)
	}
}
