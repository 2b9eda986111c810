package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/bher20/hausmeister/internal/billing"
	"github.com/bher20/hausmeister/internal/metrics"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, path string, status int, msg string) {
	metrics.RequestErrorsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	http.Error(w, msg, status)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// instrument wraps a handler with the request counter and duration
// histogram, labelled by route pattern rather than raw path.
func instrument(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(pattern).Inc()
		defer func() {
			metrics.RequestDurationSeconds.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
		}()
		next(w, r)
	}
}

// parsePeriod reads the from/to query parameters. Missing values default
// to the given calendar year when "year" is set, otherwise the current
// year.
func parsePeriod(r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()

	from, okFrom := billing.ParseDate(q.Get("from"))
	to, okTo := billing.ParseDate(q.Get("to"))
	if okFrom && okTo {
		return from, to, true
	}

	year := time.Now().Year()
	if y := q.Get("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		year = n
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return start, end, true
}
