package billing

import "math"

// Input shapes mirror the record layouts of the upstream data-fetch layer,
// German field names included. The calculator never mutates them.

// Tenant is a read-only tenant snapshot.
type Tenant struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	ApartmentID string       `json:"wohnung_id"`
	// MoveIn is the einzug date (ISO). Empty means unknown, which excludes
	// the tenant from all consumption math.
	MoveIn string `json:"einzug"`
	// MoveOut is the auszug date (ISO). Empty means still resident.
	MoveOut string `json:"auszug"`
	// BaseRent is the monthly Kaltmiete, used by the missed-payments check.
	BaseRent    float64      `json:"kaltmiete"`
	Prepayments []Prepayment `json:"nebenkosten"`
}

// Prepayment is one Nebenkosten prepayment amount, effective from Date.
type Prepayment struct {
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

// Meter is a water meter. ApartmentID may be empty for an unlinked meter,
// which then contributes to nobody.
type Meter struct {
	ID          string `json:"id"`
	ApartmentID string `json:"wohnung_id"`
}

// Reading is one meter reading. Delta (verbrauch) is the precomputed
// consumption since the prior reading and is the only quantity the
// apportioner consumes; Count (zaehlerstand) is carried for display.
type Reading struct {
	ID      string  `json:"id"`
	MeterID string  `json:"wasser_zaehler_id"`
	Date    string  `json:"ablese_datum"`
	Count   float64 `json:"zaehlerstand"`
	Delta   float64 `json:"verbrauch"`
}

// FinanceRecord is one booked payment.
type FinanceRecord struct {
	ID     string  `json:"id"`
	Date   string  `json:"datum"`
	Amount float64 `json:"betrag"`
	Name   string  `json:"name"`
	Notes  string  `json:"notiz"`
}

// ConsumptionShare is one tenant's apportioned water consumption for the
// billing period, in cubic meters.
type ConsumptionShare struct {
	TenantID    string  `json:"tenant_id"`
	Consumption float64 `json:"total_consumption"`
}

// CostShare extends a ConsumptionShare with pricing. CoTenants lists the
// other residents of the apartment when it was shared (WG) during any part
// of the period.
type CostShare struct {
	ConsumptionShare
	PricePerUnit float64  `json:"price_per_unit"`
	Cost         float64  `json:"cost_share"`
	WGMember     bool     `json:"is_wg_member"`
	CoTenants    []string `json:"co_tenants,omitempty"`
}

// MissedPayment is one missed month in a MissedPaymentsResult detail list.
type MissedPayment struct {
	Month  string  `json:"month"` // YYYY-MM
	Kind   string  `json:"type"`  // "miete" or "nebenkosten"
	Amount float64 `json:"amount"`
}

// MissedPaymentsResult summarizes a tenant's payment shortfalls.
type MissedPaymentsResult struct {
	RentMonths   int             `json:"rent_months"`
	PrepayMonths int             `json:"nebenkosten_months"`
	TotalAmount  float64         `json:"total_amount"`
	Details      []MissedPayment `json:"details,omitempty"`
}

/// num applies the upstream coercion policy: anything that is not a usable
// number counts as zero instead of propagating.
func num(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
