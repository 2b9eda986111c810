// Package api exposes the dashboard over HTTP: building CRUD, water
// reports, missed-payment checks, auth and operational endpoints.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bher20/hausmeister/internal/api/swagger"
	"github.com/bher20/hausmeister/internal/auth"
	"github.com/bher20/hausmeister/internal/config"
	"github.com/bher20/hausmeister/internal/metrics"
	"github.com/bher20/hausmeister/internal/migrate"
	"github.com/bher20/hausmeister/internal/notification"
	"github.com/bher20/hausmeister/internal/storage"
)

type server struct {
	st      storage.Storage
	authSvc *auth.Service
	notif   *notification.Service
}

// NewMux constructs the HTTP mux. The returned storage handle belongs to
// the caller and must be closed on shutdown.
func NewMux(ctx context.Context, cfg config.Config) (*http.ServeMux, storage.Storage, error) {
	if cfg.AutoMigrate && cfg.DBDriver != "memory" {
		if err := migrate.Up(ctx, cfg.DBDriver, cfg.DBDSN); err != nil {
			return nil, nil, fmt.Errorf("auto-migration: %w", err)
		}
	}

	st, err := storage.Open(ctx, storage.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		return nil, nil, fmt.Errorf("open storage (driver=%s): %w", cfg.DBDriver, err)
	}

	var authSvc *auth.Service
	if cfg.AuthEnabled {
		authSvc, err = auth.NewService(st)
		if err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("init auth: %w", err)
		}
	} else {
		log.Printf("api: authentication disabled")
	}

	s := &server{
		st:      st,
		authSvc: authSvc,
		notif:   notification.NewService(st),
	}

	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			log.Printf("readyz: db ping failed: %v", err)
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if open, idle, inUse, ok := poolStats(st); ok {
			metrics.UpdateDBPoolMetrics(cfg.DBDriver, float64(open), float64(idle), float64(inUse))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.Handle("/swagger/", http.StripPrefix("/swagger", swagger.Handler()))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/swagger/", http.StatusFound)
	})

	s.registerBuildingRoutes(mux)
	s.registerBillingRoutes(mux)
	s.registerAuthRoutes(mux)
	s.registerNotificationRoutes(mux)

	return mux, st, nil
}

func poolStats(st storage.Storage) (open, idle, inUse int, ok bool) {
	g, isGorm := st.(*storage.GormStorage)
	if !isGorm {
		return 0, 0, 0, false
	}
	return g.PoolStats()
}

// protect layers token auth and an RBAC check over a handler. With auth
// disabled the handler runs as-is.
func (s *server) protect(obj, act string, h http.HandlerFunc) http.Handler {
	if s.authSvc == nil {
		return h
	}
	return s.authSvc.Middleware(s.authSvc.RequirePermission(obj, act, h))
}
