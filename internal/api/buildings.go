package api

import (
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/bher20/hausmeister/internal/auth"
	"github.com/bher20/hausmeister/internal/storage"
)

func (s *server) registerBuildingRoutes(mux *http.ServeMux) {
	read := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.protect(auth.ObjectTenants, "read", instrument(pattern, h)))
	}
	write := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.protect(auth.ObjectTenants, "write", instrument(pattern, h)))
	}

	read("GET /api/v1/houses", s.listHouses)
	write("POST /api/v1/houses", s.upsertHouse)
	read("GET /api/v1/houses/{id}", s.getHouse)
	write("PUT /api/v1/houses/{id}", s.upsertHouse)
	write("DELETE /api/v1/houses/{id}", s.deleteHouse)

	read("GET /api/v1/houses/{id}/apartments", s.listApartments)
	write("POST /api/v1/houses/{id}/apartments", s.createApartment)
	read("GET /api/v1/apartments/{id}", s.getApartment)
	write("PUT /api/v1/apartments/{id}", s.updateApartment)
	write("DELETE /api/v1/apartments/{id}", s.deleteApartment)

	read("GET /api/v1/houses/{id}/tenants", s.listTenants)
	write("POST /api/v1/houses/{id}/tenants", s.createTenant)
	read("GET /api/v1/tenants/{id}", s.getTenant)
	write("PUT /api/v1/tenants/{id}", s.updateTenant)
	write("DELETE /api/v1/tenants/{id}", s.deleteTenant)

	read("GET /api/v1/houses/{id}/meters", s.listMeters)
	write("POST /api/v1/houses/{id}/meters", s.createMeter)
	write("DELETE /api/v1/meters/{id}", s.deleteMeter)

	read("GET /api/v1/meters/{id}/readings", s.listMeterReadings)
	write("POST /api/v1/meters/{id}/readings", s.createReading)
	write("DELETE /api/v1/readings/{id}", s.deleteReading)

	read("GET /api/v1/houses/{id}/finance-records", s.listFinanceRecords)
	write("POST /api/v1/houses/{id}/finance-records", s.upsertFinanceRecord)
	write("DELETE /api/v1/finance-records/{id}", s.deleteFinanceRecord)
}

func (s *server) listHouses(w http.ResponseWriter, r *http.Request) {
	houses, err := s.st.ListHouses(r.Context())
	if err != nil {
		log.Printf("list houses failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, houses)
}

func (s *server) getHouse(w http.ResponseWriter, r *http.Request) {
	h, err := s.st.GetHouse(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("get house failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	if h == nil {
		writeError(w, r.Pattern, http.StatusNotFound, "house not found")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *server) upsertHouse(w http.ResponseWriter, r *http.Request) {
	var h storage.House
	if !decodeBody(w, r, &h) {
		return
	}
	if id := r.PathValue("id"); id != "" {
		h.ID = id
	}
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if err := s.st.UpsertHouse(r.Context(), h); err != nil {
		log.Printf("upsert house failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *server) deleteHouse(w http.ResponseWriter, r *http.Request) {
	if err := s.st.DeleteHouse(r.Context(), r.PathValue("id")); err != nil {
		log.Printf("delete house failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) listApartments(w http.ResponseWriter, r *http.Request) {
	apartments, err := s.st.ListApartments(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("list apartments failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, apartments)
}

func (s *server) createApartment(w http.ResponseWriter, r *http.Request) {
	var a storage.Apartment
	if !decodeBody(w, r, &a) {
		return
	}
	a.HouseID = r.PathValue("id")
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if err := s.st.UpsertApartment(r.Context(), a); err != nil {
		log.Printf("create apartment failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *server) getApartment(w http.ResponseWriter, r *http.Request) {
	a, err := s.st.GetApartment(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("get apartment failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	if a == nil {
		writeError(w, r.Pattern, http.StatusNotFound, "apartment not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *server) updateApartment(w http.ResponseWriter, r *http.Request) {
	existing, err := s.st.GetApartment(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("get apartment failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		writeError(w, r.Pattern, http.StatusNotFound, "apartment not found")
		return
	}
	var a storage.Apartment
	if !decodeBody(w, r, &a) {
		return
	}
	a.ID = existing.ID
	if a.HouseID == "" {
		a.HouseID = existing.HouseID
	}
	if err := s.st.UpsertApartment(r.Context(), a); err != nil {
		log.Printf("update apartment failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *server) deleteApartment(w http.ResponseWriter, r *http.Request) {
	if err := s.st.DeleteApartment(r.Context(), r.PathValue("id")); err != nil {
		log.Printf("delete apartment failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.st.ListTenants(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("list tenants failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}

func (s *server) createTenant(w http.ResponseWriter, r *http.Request) {
	var t storage.Tenant
	if !decodeBody(w, r, &t) {
		return
	}
	if t.ApartmentID == "" {
		writeError(w, r.Pattern, http.StatusBadRequest, "wohnung_id is required")
		return
	}
	apt, err := s.st.GetApartment(r.Context(), t.ApartmentID)
	if err != nil {
		log.Printf("get apartment failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	if apt == nil || apt.HouseID != r.PathValue("id") {
		writeError(w, r.Pattern, http.StatusBadRequest, "wohnung_id does not belong to this house")
		return
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if err := s.st.UpsertTenant(r.Context(), t); err != nil {
		log.Printf("create tenant failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *server) getTenant(w http.ResponseWriter, r *http.Request) {
	t, err := s.st.GetTenant(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("get tenant failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	if t == nil {
		writeError(w, r.Pattern, http.StatusNotFound, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *server) updateTenant(w http.ResponseWriter, r *http.Request) {
	existing, err := s.st.GetTenant(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("get tenant failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		writeError(w, r.Pattern, http.StatusNotFound, "tenant not found")
		return
	}
	var t storage.Tenant
	if !decodeBody(w, r, &t) {
		return
	}
	t.ID = existing.ID
	if t.ApartmentID == "" {
		t.ApartmentID = existing.ApartmentID
	}
	if err := s.st.UpsertTenant(r.Context(), t); err != nil {
		log.Printf("update tenant failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *server) deleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := s.st.DeleteTenant(r.Context(), r.PathValue("id")); err != nil {
		log.Printf("delete tenant failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) listMeters(w http.ResponseWriter, r *http.Request) {
	meters, err := s.st.ListMeters(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("list meters failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, meters)
}

func (s *server) createMeter(w http.ResponseWriter, r *http.Request) {
	var m storage.WaterMeter
	if !decodeBody(w, r, &m) {
		return
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.ApartmentID != nil {
		apt, err := s.st.GetApartment(r.Context(), *m.ApartmentID)
		if err != nil {
			log.Printf("get apartment failed: %v", err)
			writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
			return
		}
		if apt == nil || apt.HouseID != r.PathValue("id") {
			writeError(w, r.Pattern, http.StatusBadRequest, "wohnung_id does not belong to this house")
			return
		}
	}
	if err := s.st.UpsertMeter(r.Context(), m); err != nil {
		log.Printf("create meter failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *server) deleteMeter(w http.ResponseWriter, r *http.Request) {
	if err := s.st.DeleteMeter(r.Context(), r.PathValue("id")); err != nil {
		log.Printf("delete meter failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) listMeterReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := s.st.ListMeterReadings(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("list readings failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// createReading stores a counter value. The verbrauch delta against the
// meter's latest earlier reading is computed here so the apportionment
// can consume precomputed deltas.
func (s *server) createReading(w http.ResponseWriter, r *http.Request) {
	meterID := r.PathValue("id")
	m, err := s.st.GetMeter(r.Context(), meterID)
	if err != nil {
		log.Printf("get meter failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	if m == nil {
		writeError(w, r.Pattern, http.StatusNotFound, "meter not found")
		return
	}

	var reading storage.MeterReading
	if !decodeBody(w, r, &reading) {
		return
	}
	reading.MeterID = meterID
	if reading.ID == "" {
		reading.ID = uuid.New().String()
	}
	if reading.Date.IsZero() {
		writeError(w, r.Pattern, http.StatusBadRequest, "ablese_datum is required")
		return
	}

	prev, err := s.st.LatestReading(r.Context(), meterID)
	if err != nil {
		log.Printf("latest reading failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	if prev != nil {
		if !reading.Date.After(prev.Date) {
			writeError(w, r.Pattern, http.StatusBadRequest, "ablese_datum must be after the latest reading")
			return
		}
		reading.Verbrauch = reading.Zaehlerstand - prev.Zaehlerstand
	} else {
		reading.Verbrauch = 0
	}

	if err := s.st.UpsertReading(r.Context(), reading); err != nil {
		log.Printf("create reading failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

func (s *server) deleteReading(w http.ResponseWriter, r *http.Request) {
	if err := s.st.DeleteReading(r.Context(), r.PathValue("id")); err != nil {
		log.Printf("delete reading failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) listFinanceRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.st.ListFinanceRecords(r.Context(), r.PathValue("id"))
	if err != nil {
		log.Printf("list finance records failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *server) upsertFinanceRecord(w http.ResponseWriter, r *http.Request) {
	var f storage.FinanceRecord
	if !decodeBody(w, r, &f) {
		return
	}
	f.HouseID = r.PathValue("id")
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if err := s.st.UpsertFinanceRecord(r.Context(), f); err != nil {
		log.Printf("upsert finance record failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *server) deleteFinanceRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.st.DeleteFinanceRecord(r.Context(), r.PathValue("id")); err != nil {
		log.Printf("delete finance record failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
