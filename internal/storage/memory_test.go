package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryHouseHierarchy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	if err := m.UpsertHouse(ctx, House{ID: "h1", Name: "Musterstraße 1", City: "Leipzig"}); err != nil {
		t.Fatalf("UpsertHouse failed: %v", err)
	}
	if err := m.UpsertApartment(ctx, Apartment{ID: "w1", HouseID: "h1", Name: "EG links"}); err != nil {
		t.Fatalf("UpsertApartment failed: %v", err)
	}
	einzug := time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC)
	if err := m.UpsertTenant(ctx, Tenant{ID: "t1", ApartmentID: "w1", Name: "Erika Muster", Einzug: &einzug}); err != nil {
		t.Fatalf("UpsertTenant failed: %v", err)
	}

	tenants, err := m.ListTenants(ctx, "h1")
	if err != nil {
		t.Fatalf("ListTenants failed: %v", err)
	}
	if len(tenants) != 1 || tenants[0].ID != "t1" {
		t.Fatalf("expected tenant t1 under h1, got %+v", tenants)
	}

	// Tenants of other houses stay invisible.
	tenants, err = m.ListTenants(ctx, "other")
	if err != nil || len(tenants) != 0 {
		t.Fatalf("expected no tenants for unknown house, got %+v (err %v)", tenants, err)
	}
}

func TestMemoryMetersAndReadings(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	_ = m.UpsertHouse(ctx, House{ID: "h1"})
	_ = m.UpsertApartment(ctx, Apartment{ID: "w1", HouseID: "h1"})
	w1 := "w1"
	_ = m.UpsertMeter(ctx, WaterMeter{ID: "m1", ApartmentID: &w1, Number: "4711"})
	_ = m.UpsertMeter(ctx, WaterMeter{ID: "loose"}) // unlinked

	meters, err := m.ListMeters(ctx, "h1")
	if err != nil {
		t.Fatalf("ListMeters failed: %v", err)
	}
	if len(meters) != 1 || meters[0].ID != "m1" {
		t.Fatalf("unlinked meter must not be listed under the house: %+v", meters)
	}

	dates := []string{"2023-06-01", "2023-01-01", "2023-12-31"}
	for i, ds := range dates {
		day, _ := time.Parse("2006-01-02", ds)
		_ = m.UpsertReading(ctx, MeterReading{ID: "r" + ds, MeterID: "m1", Date: day, Zaehlerstand: float64(1000 + i)})
	}

	readings, err := m.ListMeterReadings(ctx, "m1")
	if err != nil {
		t.Fatalf("ListMeterReadings failed: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}
	for i := 1; i < len(readings); i++ {
		if readings[i].Date.Before(readings[i-1].Date) {
			t.Errorf("readings must come back in ascending date order")
		}
	}

	latest, err := m.LatestReading(ctx, "m1")
	if err != nil || latest == nil {
		t.Fatalf("LatestReading failed: %v (%v)", err, latest)
	}
	if latest.ID != "r2023-12-31" {
		t.Errorf("latest reading = %s, want r2023-12-31", latest.ID)
	}

	houseReadings, err := m.ListReadings(ctx, "h1")
	if err != nil || len(houseReadings) != 3 {
		t.Fatalf("house-wide readings: got %d (err %v), want 3", len(houseReadings), err)
	}
}

func TestMemoryInvoiceUpsertReplacesSameYear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	_ = m.UpsertInvoice(ctx, WaterInvoice{HouseID: "h1", PeriodStart: start, PeriodEnd: end, TotalCost: 500, TotalConsumption: 180})
	_ = m.UpsertInvoice(ctx, WaterInvoice{HouseID: "h1", PeriodStart: start, PeriodEnd: end, TotalCost: 540, TotalConsumption: 180})

	inv, err := m.GetInvoice(ctx, "h1", 2023)
	if err != nil || inv == nil {
		t.Fatalf("GetInvoice failed: %v (%v)", err, inv)
	}
	if inv.TotalCost != 540 {
		t.Errorf("second upsert must replace the first: cost %v", inv.TotalCost)
	}
	invoices, _ := m.ListInvoices(ctx, "h1")
	if len(invoices) != 1 {
		t.Errorf("expected a single invoice for 2023, got %d", len(invoices))
	}
	if inv, _ := m.GetInvoice(ctx, "h1", 2024); inv != nil {
		t.Errorf("no invoice was stored for 2024, got %+v", inv)
	}
}

func TestMemoryUsersAndTokens(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	_ = m.CreateUser(ctx, User{ID: "u1", Username: "verwalter", Role: "admin"})
	u, err := m.GetUserByUsername(ctx, "verwalter")
	if err != nil || u == nil || u.ID != "u1" {
		t.Fatalf("GetUserByUsername: %v (%v)", err, u)
	}

	_ = m.CreateToken(ctx, Token{ID: "tok1", UserID: "u1", TokenHash: "abc"})
	tok, err := m.GetTokenByHash(ctx, "abc")
	if err != nil || tok == nil || tok.ID != "tok1" {
		t.Fatalf("GetTokenByHash: %v (%v)", err, tok)
	}
	if err := m.DeleteToken(ctx, "tok1"); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if tok, _ := m.GetTokenByHash(ctx, "abc"); tok != nil {
		t.Errorf("deleted token still retrievable")
	}
}
