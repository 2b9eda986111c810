package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bher20/hausmeister/internal/storage"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func fixture() (storage.House, []storage.Tenant, []storage.WaterMeter, []storage.MeterReading) {
	house := storage.House{ID: "h1", Name: "Gartenstr. 12"}
	tenants := []storage.Tenant{
		{ID: "t1", Name: "Anna Adler", ApartmentID: "w1", Einzug: datePtr("2020-01-01")},
		{ID: "t2", Name: "Bernd Bauer", ApartmentID: "w1", Einzug: datePtr("2020-01-01")},
	}
	apt := "w1"
	meters := []storage.WaterMeter{{ID: "m1", ApartmentID: &apt, Number: "WZ-100"}}
	readings := []storage.MeterReading{
		{ID: "r1", MeterID: "m1", Date: date("2024-12-31"), Zaehlerstand: 300, Verbrauch: 120},
	}
	return house, tenants, meters, readings
}

func TestBuildSplitsCostsAcrossWG(t *testing.T) {
	house, tenants, meters, readings := fixture()
	inv := &storage.WaterInvoice{
		HouseID:          "h1",
		PeriodStart:      date("2024-01-01"),
		PeriodEnd:        date("2024-12-31"),
		TotalCost:        360,
		TotalConsumption: 120,
	}

	rep := Build(house, tenants, meters, readings, inv, date("2024-01-01"), date("2024-12-31"))

	if rep.PricePerUnit != 3 {
		t.Fatalf("price per unit = %v, want 3", rep.PricePerUnit)
	}
	if len(rep.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rep.Rows))
	}
	for _, row := range rep.Rows {
		if row.Consumption != 60 {
			t.Errorf("tenant %s consumption = %v, want 60", row.TenantID, row.Consumption)
		}
		if row.Cost != 180 {
			t.Errorf("tenant %s cost = %v, want 180", row.TenantID, row.Cost)
		}
		if !row.WGMember {
			t.Errorf("tenant %s should be flagged as WG member", row.TenantID)
		}
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", rep.Warnings)
	}

	// Co-tenants carry display names, not ids.
	if got := rep.Rows[0].CoTenants; len(got) != 1 || got[0] != "Bernd Bauer" {
		t.Errorf("co-tenants of first row = %v, want [Bernd Bauer]", got)
	}
}

func TestBuildWithoutInvoiceWarnsAndZeroesCosts(t *testing.T) {
	house, tenants, meters, readings := fixture()

	rep := Build(house, tenants, meters, readings, nil, date("2024-01-01"), date("2024-12-31"))

	if len(rep.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", rep.Warnings)
	}
	for _, row := range rep.Rows {
		if row.Cost != 0 {
			t.Errorf("tenant %s cost = %v, want 0 without an invoice", row.TenantID, row.Cost)
		}
		if row.Consumption == 0 {
			t.Errorf("tenant %s consumption should still be apportioned", row.TenantID)
		}
	}
}

func TestBuildIncompleteInvoiceWarns(t *testing.T) {
	house, tenants, meters, readings := fixture()
	inv := &storage.WaterInvoice{
		HouseID:     "h1",
		PeriodStart: date("2024-01-01"),
		PeriodEnd:   date("2024-12-31"),
		TotalCost:   360,
		// consumption missing, e.g. partially parsed invoice
	}

	rep := Build(house, tenants, meters, readings, inv, date("2024-01-01"), date("2024-12-31"))

	if len(rep.Warnings) != 1 || !strings.Contains(rep.Warnings[0], "incomplete") {
		t.Fatalf("warnings = %v, want incomplete-invoice warning", rep.Warnings)
	}
	if rep.PricePerUnit != 0 {
		t.Errorf("price per unit = %v, want 0 for incomplete invoice", rep.PricePerUnit)
	}
}

func TestBuildRoundsMoneyToCents(t *testing.T) {
	house, tenants, meters, readings := fixture()
	inv := &storage.WaterInvoice{
		HouseID:          "h1",
		PeriodStart:      date("2024-01-01"),
		PeriodEnd:        date("2024-12-31"),
		TotalCost:        100,
		TotalConsumption: 120,
	}

	rep := Build(house, tenants, meters, readings, inv, date("2024-01-01"), date("2024-12-31"))

	// 100/120 * 60 = 50.0 exactly, but each rendered figure must carry at
	// most two decimals regardless of the raw split.
	for _, row := range rep.Rows {
		cents := row.Cost * 100
		if cents != float64(int64(cents)) {
			t.Errorf("tenant %s cost %v not rounded to cents", row.TenantID, row.Cost)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	house, tenants, meters, readings := fixture()
	inv := &storage.WaterInvoice{
		HouseID: "h1", PeriodStart: date("2024-01-01"), PeriodEnd: date("2024-12-31"),
		TotalCost: 360, TotalConsumption: 120,
	}
	rep := Build(house, tenants, meters, readings, inv, date("2024-01-01"), date("2024-12-31"))

	out, err := RenderCSV(rep)
	if err != nil {
		t.Fatalf("RenderCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want header plus 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "tenant_id,tenant_name") {
		t.Errorf("unexpected csv header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "Anna Adler") || !strings.Contains(lines[1], "180.00") {
		t.Errorf("unexpected first csv row: %q", lines[1])
	}
}

func TestRenderPDFAndXLSXProduceOutput(t *testing.T) {
	house, tenants, meters, readings := fixture()
	rep := Build(house, tenants, meters, readings, nil, date("2024-01-01"), date("2024-12-31"))

	pdfBytes, err := RenderPDF(rep)
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !bytes.HasPrefix(pdfBytes, []byte("%PDF")) {
		t.Errorf("pdf output does not start with %%PDF header")
	}

	xlsxBytes, err := RenderXLSX(rep)
	if err != nil {
		t.Fatalf("RenderXLSX: %v", err)
	}
	if len(xlsxBytes) == 0 {
		t.Errorf("xlsx output is empty")
	}
}
