package billing

import "time"

// ApportionCosts prices the apportioned consumption against the building's
// total water cost and total consumption, both taken from the utility
// invoice. When either total is zero the price per unit degrades to zero
// instead of failing; a missing invoice entry upstream is a
// data-completeness problem, not a defect, and the caller is expected to
// surface it as a warning.
func ApportionCosts(tenants []Tenant, meters []Meter, readings []Reading, totalCost, totalConsumption float64, periodStart, periodEnd time.Time) []CostShare {
	shares := ApportionConsumption(tenants, meters, readings, periodStart, periodEnd)

	pricePerUnit := 0.0
	if c := num(totalConsumption); c > 0 {
		pricePerUnit = num(totalCost) / c
	}

	occ := groupOccupants(tenants, NewInterval(periodStart, periodEnd))

	out := make([]CostShare, 0, len(shares))
	for _, s := range shares {
		cs := CostShare{
			ConsumptionShare: s,
			PricePerUnit:     pricePerUnit,
			Cost:             s.Consumption * pricePerUnit,
		}
		apartmentID := occ.apartmentOf[s.TenantID]
		residents := occ.byApartment[apartmentID]
		if len(residents) > 1 {
			cs.WGMember = true
			for _, res := range residents {
				if res.id != s.TenantID {
					cs.CoTenants = append(cs.CoTenants, res.id)
				}
			}
		}
		out = append(out, cs)
	}
	return out
}

// TenantCost returns a single tenant's cost share, or nil when the tenant
// does not appear in the apportionment (unknown id, or no meter linked to
// their apartment).
func TenantCost(tenantID string, tenants []Tenant, meters []Meter, readings []Reading, totalCost, totalConsumption float64, periodStart, periodEnd time.Time) *CostShare {
	for _, cs := range ApportionCosts(tenants, meters, readings, totalCost, totalConsumption, periodStart, periodEnd) {
		if cs.TenantID == tenantID {
			return &cs
		}
	}
	return nil
}
