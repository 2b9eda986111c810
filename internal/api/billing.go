package api

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/bher20/hausmeister/internal/auth"
	"github.com/bher20/hausmeister/internal/billing"
	"github.com/bher20/hausmeister/internal/invoice"
	"github.com/bher20/hausmeister/internal/metrics"
	"github.com/bher20/hausmeister/internal/report"
	"github.com/bher20/hausmeister/internal/storage"
)

const maxInvoiceUpload = 16 << 20 // 16 MiB

func (s *server) registerBillingRoutes(mux *http.ServeMux) {
	read := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.protect(auth.ObjectBilling, "read", instrument(pattern, h)))
	}
	write := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.protect(auth.ObjectBilling, "write", instrument(pattern, h)))
	}

	read("GET /api/v1/houses/{id}/water-invoices", s.listInvoices)
	write("PUT /api/v1/houses/{id}/water-invoices", s.upsertInvoice)
	write("POST /api/v1/houses/{id}/water-invoices/parse", s.parseInvoice)

	read("GET /api/v1/houses/{id}/water-report", s.waterReport)
	read("GET /api/v1/houses/{id}/water-report/export", s.exportWaterReport)
	read("GET /api/v1/houses/{id}/water-report/tenants/{tenantId}", s.tenantWaterShare)

	read("GET /api/v1/tenants/{id}/missed-payments", s.missedPayments)
}

func (s *server) listInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.st.ListInvoices(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("list invoices failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (s *server) upsertInvoice(w http.ResponseWriter, r *http.Request) {
	var inv storage.WaterInvoice
	if !decodeBody(w, r, &inv) {
		return
	}
	inv.HouseID = r.PathValue("id")
	if inv.PeriodStart.IsZero() || inv.PeriodEnd.IsZero() {
		writeError(w, r.Pattern, http.StatusBadRequest, "period_start and period_end are required")
		return
	}
	if inv.Source == "" {
		inv.Source = "manual"
	}
	if err := s.st.UpsertInvoice(r.Context(), inv); err != nil {
		log.Printf("upsert invoice failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// parseInvoice accepts a multipart upload of the utility company's PDF
// statement, extracts the totals and stores them as the invoice for the
// statement period.
func (s *server) parseInvoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxInvoiceUpload); err != nil {
		writeError(w, r.Pattern, http.StatusBadRequest, "expected multipart form with a 'file' field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r.Pattern, http.StatusBadRequest, "missing 'file' field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxInvoiceUpload))
	if err != nil {
		log.Printf("read invoice upload failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}

	totals, err := invoice.ParseFromReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		metrics.InvoicesParsedTotal.WithLabelValues("error").Inc()
		log.Printf("parse invoice pdf failed: %v", err)
		writeError(w, r.Pattern, http.StatusUnprocessableEntity, "could not parse PDF: "+err.Error())
		return
	}
	metrics.InvoicesParsedTotal.WithLabelValues("ok").Inc()

	inv := storage.WaterInvoice{
		HouseID:          r.PathValue("id"),
		TotalCost:        totals.TotalCost,
		TotalConsumption: totals.TotalConsumption,
		Source:           header.Filename,
	}
	if totals.PeriodStart != nil {
		inv.PeriodStart = *totals.PeriodStart
	}
	if totals.PeriodEnd != nil {
		inv.PeriodEnd = *totals.PeriodEnd
	}
	if inv.PeriodStart.IsZero() {
		// No Abrechnungszeitraum in the PDF: assume previous calendar year.
		year := time.Now().Year() - 1
		inv.PeriodStart = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		inv.PeriodEnd = time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}

	if err := s.st.UpsertInvoice(r.Context(), inv); err != nil {
		log.Printf("store parsed invoice failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// reportInputs loads everything a water report needs for one house.
func (s *server) reportInputs(r *http.Request) (*report.WaterReport, int, error) {
	houseID := r.PathValue("id")
	ctx := r.Context()

	from, to, ok := parsePeriod(r)
	if !ok {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid from/to/year parameters")
	}

	house, err := s.st.GetHouse(ctx, houseID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if house == nil {
		return nil, http.StatusNotFound, fmt.Errorf("house not found")
	}

	tenants, err := s.st.ListTenants(ctx, houseID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	meters, err := s.st.ListMeters(ctx, houseID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	readings, err := s.st.ListReadings(ctx, houseID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	inv, err := s.st.GetInvoice(ctx, houseID, from.Year())
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	start := time.Now()
	rep := report.Build(*house, tenants, meters, readings, inv, from, to)
	metrics.ReportDurationSeconds.Observe(time.Since(start).Seconds())

	return rep, http.StatusOK, nil
}

func (s *server) waterReport(w http.ResponseWriter, r *http.Request) {
	rep, status, err := s.reportInputs(r)
	if err != nil {
		if status == http.StatusInternalServerError {
			log.Printf("build water report failed: %v", err)
			writeError(w, r.Pattern, status, "internal error")
			return
		}
		writeError(w, r.Pattern, status, err.Error())
		return
	}
	metrics.ReportsGeneratedTotal.WithLabelValues("json").Inc()
	writeJSON(w, http.StatusOK, rep)
}

func (s *server) exportWaterReport(w http.ResponseWriter, r *http.Request) {
	rep, status, err := s.reportInputs(r)
	if err != nil {
		if status == http.StatusInternalServerError {
			log.Printf("build water report failed: %v", err)
			writeError(w, r.Pattern, status, "internal error")
			return
		}
		writeError(w, r.Pattern, status, err.Error())
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "pdf"
	}

	var (
		data        []byte
		contentType string
		ext         string
	)
	switch format {
	case "pdf":
		data, err = report.RenderPDF(rep)
		contentType, ext = "application/pdf", "pdf"
	case "xlsx":
		data, err = report.RenderXLSX(rep)
		contentType, ext = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"
	case "csv":
		data, err = report.RenderCSV(rep)
		contentType, ext = "text/csv", "csv"
	default:
		writeError(w, r.Pattern, http.StatusBadRequest, "format must be pdf, xlsx or csv")
		return
	}
	if err != nil {
		log.Printf("render %s report failed: %v", format, err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	metrics.ReportsGeneratedTotal.WithLabelValues(format).Inc()

	filename := fmt.Sprintf("wasserkosten_%s_%d.%s", rep.HouseID, rep.PeriodStart.Year(), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	_, _ = w.Write(data)
}

// tenantWaterShare returns one tenant's line of the report, 404 when the
// tenant has no metered share in the period.
func (s *server) tenantWaterShare(w http.ResponseWriter, r *http.Request) {
	rep, status, err := s.reportInputs(r)
	if err != nil {
		if status == http.StatusInternalServerError {
			log.Printf("build water report failed: %v", err)
			writeError(w, r.Pattern, status, "internal error")
			return
		}
		writeError(w, r.Pattern, status, err.Error())
		return
	}

	tenantID := r.PathValue("tenantId")
	for _, row := range rep.Rows {
		if row.TenantID == tenantID {
			writeJSON(w, http.StatusOK, row)
			return
		}
	}
	writeError(w, r.Pattern, http.StatusNotFound, "tenant has no water share in this period")
}

func (s *server) missedPayments(w http.ResponseWriter, r *http.Request) {
	tenant, err := s.st.GetTenant(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("get tenant failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	if tenant == nil {
		writeError(w, r.Pattern, http.StatusNotFound, "tenant not found")
		return
	}

	apt, err := s.st.GetApartment(r.Context(), tenant.ApartmentID)
	if err != nil {
		log.Printf("get apartment failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	if apt == nil {
		writeError(w, r.Pattern, http.StatusConflict, "tenant is not linked to an apartment")
		return
	}

	records, err := s.st.ListFinanceRecords(r.Context(), apt.HouseID)
	if err != nil {
		log.Printf("list finance records failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}

	asOf := time.Now()
	if v, ok := billing.ParseDate(r.URL.Query().Get("as_of")); ok {
		asOf = v
	}
	includeDetails := r.URL.Query().Get("details") == "1"

	result := billing.MissedPayments(report.ToBillingTenant(*tenant), report.ToBillingRecords(records), asOf, includeDetails)
	writeJSON(w, http.StatusOK, result)
}
