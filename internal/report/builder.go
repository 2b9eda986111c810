// Package report turns apportionment results into the water cost report
// handed to the landlord: rounded figures, warnings about incomplete
// invoice data, and PDF/XLSX/CSV renderings.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/bher20/hausmeister/internal/billing"
	"github.com/bher20/hausmeister/internal/storage"
)

// Row is one tenant line of a water report. Money is rounded to cents and
// consumption to three decimals; the raw apportionment stays unrounded
// inside the billing package.
type Row struct {
	TenantID    string   `json:"tenant_id"`
	TenantName  string   `json:"tenant_name"`
	Consumption float64  `json:"consumption_m3"`
	Cost        float64  `json:"cost_eur"`
	WGMember    bool     `json:"is_wg_member"`
	CoTenants   []string `json:"co_tenants,omitempty"` // display names
}

// WaterReport is the complete per-house water cost breakdown for one
// billing period.
type WaterReport struct {
	HouseID          string    `json:"haus_id"`
	HouseName        string    `json:"haus_name"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	TotalCost        float64   `json:"total_cost"`
	TotalConsumption float64   `json:"total_consumption"`
	PricePerUnit     float64   `json:"price_per_unit"`
	Rows             []Row     `json:"rows"`
	Warnings         []string  `json:"warnings,omitempty"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Build assembles the report from storage snapshots. A nil invoice is
// legal: consumption is still apportioned and the missing pricing is
// surfaced as a warning instead of an error.
func Build(house storage.House, tenants []storage.Tenant, meters []storage.WaterMeter, readings []storage.MeterReading, inv *storage.WaterInvoice, periodStart, periodEnd time.Time) *WaterReport {
	totalCost, totalConsumption := 0.0, 0.0
	if inv != nil {
		totalCost = inv.TotalCost
		totalConsumption = inv.TotalConsumption
	}

	bTenants, bMeters, bReadings := toBillingInputs(tenants, meters, readings)
	costs := billing.ApportionCosts(bTenants, bMeters, bReadings, totalCost, totalConsumption, periodStart, periodEnd)

	names := make(map[string]string, len(tenants))
	for _, t := range tenants {
		names[t.ID] = t.Name
	}

	rep := &WaterReport{
		HouseID:          house.ID,
		HouseName:        house.Name,
		PeriodStart:      billing.DateOnly(periodStart),
		PeriodEnd:        billing.DateOnly(periodEnd),
		TotalCost:        roundCents(totalCost),
		TotalConsumption: round3(totalConsumption),
		GeneratedAt:      time.Now().UTC(),
	}
	if len(costs) > 0 {
		rep.PricePerUnit = costs[0].PricePerUnit
	}

	for _, c := range costs {
		row := Row{
			TenantID:    c.TenantID,
			TenantName:  names[c.TenantID],
			Consumption: round3(c.Consumption),
			Cost:        roundCents(c.Cost),
			WGMember:    c.WGMember,
		}
		for _, id := range c.CoTenants {
			row.CoTenants = append(row.CoTenants, names[id])
		}
		rep.Rows = append(rep.Rows, row)
	}

	switch {
	case inv == nil:
		rep.Warnings = append(rep.Warnings, "no water invoice recorded for this period; cost shares are zero")
	case totalCost == 0 || totalConsumption == 0:
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("water invoice for %d is incomplete (cost=%.2f, consumption=%.3f); cost shares are zero", inv.PeriodStart.Year(), totalCost, totalConsumption))
	}

	return rep
}

// toBillingInputs converts storage rows into the calculator's snapshot
// shapes. Dates become ISO strings, nil dates become empty (absent).
func toBillingInputs(tenants []storage.Tenant, meters []storage.WaterMeter, readings []storage.MeterReading) ([]billing.Tenant, []billing.Meter, []billing.Reading) {
	bt := make([]billing.Tenant, 0, len(tenants))
	for _, t := range tenants {
		bt = append(bt, ToBillingTenant(t))
	}

	bm := make([]billing.Meter, 0, len(meters))
	for _, m := range meters {
		apartmentID := ""
		if m.ApartmentID != nil {
			apartmentID = *m.ApartmentID
		}
		bm = append(bm, billing.Meter{ID: m.ID, ApartmentID: apartmentID})
	}

	br := make([]billing.Reading, 0, len(readings))
	for _, r := range readings {
		br = append(br, billing.Reading{
			ID:      r.ID,
			MeterID: r.MeterID,
			Date:    r.Date.Format("2006-01-02"),
			Count:   r.Zaehlerstand,
			Delta:   r.Verbrauch,
		})
	}

	return bt, bm, br
}

// ToBillingTenant converts a stored tenant into the calculator's shape.
func ToBillingTenant(t storage.Tenant) billing.Tenant {
	b := billing.Tenant{
		ID:          t.ID,
		Name:        t.Name,
		ApartmentID: t.ApartmentID,
		MoveIn:      isoDate(t.Einzug),
		MoveOut:     isoDate(t.Auszug),
		BaseRent:    t.Kaltmiete,
	}
	for _, nk := range t.Nebenkosten {
		b.Prepayments = append(b.Prepayments, billing.Prepayment{Amount: nk.Amount, Date: nk.Date.Format("2006-01-02")})
	}
	return b
}

// ToBillingRecords converts stored finance records for the
// missed-payments check.
func ToBillingRecords(recs []storage.FinanceRecord) []billing.FinanceRecord {
	out := make([]billing.FinanceRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, billing.FinanceRecord{
			ID:     r.ID,
			Date:   r.Date.Format("2006-01-02"),
			Amount: r.Amount,
			Name:   r.Name,
			Notes:  r.Notes,
		})
	}
	return out
}

func isoDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
