package api

import (
	"log"
	"net/http"
	"time"

	"github.com/bher20/hausmeister/internal/auth"
	"github.com/bher20/hausmeister/internal/billing"
	"github.com/bher20/hausmeister/internal/report"
	"github.com/bher20/hausmeister/internal/storage"
)

func (s *server) registerNotificationRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/v1/settings/email",
		s.protect(auth.ObjectSettings, "read", instrument("GET /api/v1/settings/email", s.getEmailConfig)))
	mux.Handle("PUT /api/v1/settings/email",
		s.protect(auth.ObjectSettings, "write", instrument("PUT /api/v1/settings/email", s.putEmailConfig)))
	mux.Handle("POST /api/v1/settings/email/test",
		s.protect(auth.ObjectSettings, "write", instrument("POST /api/v1/settings/email/test", s.testEmailConfig)))
	mux.Handle("POST /api/v1/tenants/{id}/remind",
		s.protect(auth.ObjectBilling, "write", instrument("POST /api/v1/tenants/{id}/remind", s.remindTenant)))
}

func (s *server) getEmailConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.notif.GetConfig(r.Context())
	if err != nil {
		log.Printf("get email config failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	if cfg == nil {
		cfg = &storage.EmailConfig{}
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *server) putEmailConfig(w http.ResponseWriter, r *http.Request) {
	var cfg storage.EmailConfig
	if !decodeBody(w, r, &cfg) {
		return
	}
	if err := s.notif.SaveConfig(r.Context(), cfg); err != nil {
		log.Printf("save email config failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *server) testEmailConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Config storage.EmailConfig `json:"config"`
		To     string              `json:"to"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.notif.TestConfig(r.Context(), req.Config, req.To); err != nil {
		writeError(w, r.Pattern, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

// remindTenant triggers the payment-reminder mail on demand, outside the
// scheduled run.
func (s *server) remindTenant(w http.ResponseWriter, r *http.Request) {
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

	result := billing.MissedPayments(report.ToBillingTenant(*tenant), report.ToBillingRecords(records), time.Now(), true)
	if err := s.notif.SendPaymentReminder(r.Context(), *tenant, result); err != nil {
		writeError(w, r.Pattern, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
