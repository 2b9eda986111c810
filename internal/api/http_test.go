package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bher20/hausmeister/internal/config"
	"github.com/bher20/hausmeister/internal/report"
	"github.com/bher20/hausmeister/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux, st, err := NewMux(context.Background(), config.Config{DBDriver: "memory"})
	if err != nil {
		t.Fatalf("NewMux: %v", err)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		st.Close()
	})
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response of %s %s: %v", method, url, err)
		}
	}
	return resp
}

// seedHouse populates one house with an apartment, a tenant, a metered
// year of water and a matching invoice, and returns the ids.
func seedHouse(t *testing.T, base string) (houseID, apartmentID, tenantID, meterID string) {
	t.Helper()

	var house storage.House
	resp := doJSON(t, http.MethodPost, base+"/api/v1/houses", map[string]string{"name": "Gartenstr. 12"}, &house)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create house: status %d", resp.StatusCode)
	}

	var apt storage.Apartment
	resp = doJSON(t, http.MethodPost, base+"/api/v1/houses/"+house.ID+"/apartments", map[string]string{"name": "EG links"}, &apt)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create apartment: status %d", resp.StatusCode)
	}

	var tenant storage.Tenant
	resp = doJSON(t, http.MethodPost, base+"/api/v1/houses/"+house.ID+"/tenants", map[string]interface{}{
		"name":       "Anna Adler",
		"wohnung_id": apt.ID,
		"einzug":     "2020-01-01T00:00:00Z",
		"kaltmiete":  700,
	}, &tenant)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create tenant: status %d", resp.StatusCode)
	}

	var meter storage.WaterMeter
	resp = doJSON(t, http.MethodPost, base+"/api/v1/houses/"+house.ID+"/meters", map[string]interface{}{
		"wohnung_id": apt.ID,
		"nummer":     "WZ-100",
	}, &meter)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create meter: status %d", resp.StatusCode)
	}

	for _, reading := range []map[string]interface{}{
		{"ablese_datum": "2023-12-31T00:00:00Z", "zaehlerstand": 100},
		{"ablese_datum": "2024-12-31T00:00:00Z", "zaehlerstand": 220},
	} {
		resp = doJSON(t, http.MethodPost, base+"/api/v1/meters/"+meter.ID+"/readings", reading, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create reading: status %d", resp.StatusCode)
		}
	}

	resp = doJSON(t, http.MethodPut, base+"/api/v1/houses/"+house.ID+"/water-invoices", map[string]interface{}{
		"period_start":      "2024-01-01T00:00:00Z",
		"period_end":        "2024-12-31T00:00:00Z",
		"total_cost":        360,
		"total_consumption": 120,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("store invoice: status %d", resp.StatusCode)
	}

	return house.ID, apt.ID, tenant.ID, meter.ID
}

func TestReadingDeltaComputedOnInsert(t *testing.T) {
	srv := newTestServer(t)
	_, _, _, meterID := seedHouse(t, srv.URL)

	var readings []storage.MeterReading
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/meters/"+meterID+"/readings", nil, &readings)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list readings: status %d", resp.StatusCode)
	}
	if len(readings) != 2 {
		t.Fatalf("readings = %d, want 2", len(readings))
	}
	if readings[0].Verbrauch != 0 {
		t.Errorf("first reading verbrauch = %v, want 0", readings[0].Verbrauch)
	}
	if readings[1].Verbrauch != 120 {
		t.Errorf("second reading verbrauch = %v, want 120", readings[1].Verbrauch)
	}

	// A reading dated before the latest one must be rejected.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/meters/"+meterID+"/readings", map[string]interface{}{
		"ablese_datum": "2024-06-01T00:00:00Z",
		"zaehlerstand": 150,
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("out-of-order reading: status %d, want 400", resp.StatusCode)
	}
}

func TestWaterReportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	houseID, _, tenantID, _ := seedHouse(t, srv.URL)

	var rep report.WaterReport
	resp := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/v1/houses/%s/water-report?from=2024-01-01&to=2024-12-31", srv.URL, houseID), nil, &rep)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("water report: status %d", resp.StatusCode)
	}
	if rep.PricePerUnit != 3 {
		t.Errorf("price per unit = %v, want 3", rep.PricePerUnit)
	}
	if len(rep.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rep.Rows))
	}
	if rep.Rows[0].TenantID != tenantID {
		t.Errorf("row tenant = %s, want %s", rep.Rows[0].TenantID, tenantID)
	}
	if rep.Rows[0].Consumption != 120 {
		t.Errorf("consumption = %v, want 120", rep.Rows[0].Consumption)
	}
	if rep.Rows[0].Cost != 360 {
		t.Errorf("cost = %v, want 360", rep.Rows[0].Cost)
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", rep.Warnings)
	}
}

func TestTenantWaterShareNotFound(t *testing.T) {
	srv := newTestServer(t)
	houseID, _, tenantID, _ := seedHouse(t, srv.URL)

	url := fmt.Sprintf("%s/api/v1/houses/%s/water-report/tenants/%s?from=2024-01-01&to=2024-12-31", srv.URL, houseID, tenantID)
	resp := doJSON(t, http.MethodGet, url, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("existing tenant share: status %d, want 200", resp.StatusCode)
	}

	url = fmt.Sprintf("%s/api/v1/houses/%s/water-report/tenants/ghost?from=2024-01-01&to=2024-12-31", srv.URL, houseID)
	resp = doJSON(t, http.MethodGet, url, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("ghost tenant share: status %d, want 404", resp.StatusCode)
	}
}

func TestWaterReportCSVExport(t *testing.T) {
	srv := newTestServer(t)
	houseID, _, _, _ := seedHouse(t, srv.URL)

	url := fmt.Sprintf("%s/api/v1/houses/%s/water-report/export?format=csv&from=2024-01-01&to=2024-12-31", srv.URL, houseID)
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q, want text/csv", ct)
	}

	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(body.String(), "Anna Adler") {
		t.Errorf("csv export does not contain the tenant row: %q", body.String())
	}
}

func TestMissedPaymentsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	houseID, _, tenantID, _ := seedHouse(t, srv.URL)

	// One rent payment in January 2020, nothing after.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/houses/"+houseID+"/finance-records", map[string]interface{}{
		"datum":  "2020-01-03T00:00:00Z",
		"betrag": 700,
		"name":   "Miete Januar",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create finance record: status %d", resp.StatusCode)
	}

	var result struct {
		RentMonths  int     `json:"rent_months"`
		TotalAmount float64 `json:"total_amount"`
		Details     []struct {
			Month string `json:"month"`
		} `json:"details"`
	}
	url := srv.URL + "/api/v1/tenants/" + tenantID + "/missed-payments?details=1&as_of=2020-03-31"
	resp = doJSON(t, http.MethodGet, url, nil, &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("missed payments: status %d", resp.StatusCode)
	}
	if result.RentMonths != 2 {
		t.Errorf("rent months = %d, want 2 (February and March unpaid)", result.RentMonths)
	}
	if result.TotalAmount != 1400 {
		t.Errorf("total = %v, want 1400", result.TotalAmount)
	}
	if len(result.Details) == 0 {
		t.Error("details requested but missing")
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestCreateTenantValidatesApartment(t *testing.T) {
	srv := newTestServer(t)
	houseID, _, _, _ := seedHouse(t, srv.URL)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/houses/"+houseID+"/tenants", map[string]interface{}{
		"name":       "Bernd Bauer",
		"wohnung_id": "not-an-apartment",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("foreign wohnung_id: status %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/houses/"+houseID+"/tenants", map[string]interface{}{
		"name": "Clara Clever",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing wohnung_id: status %d, want 400", resp.StatusCode)
	}
}
