package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bher20/hausmeister/internal/api"
	"github.com/bher20/hausmeister/internal/config"
	"github.com/bher20/hausmeister/internal/cron"
	"github.com/bher20/hausmeister/internal/migrate"
)

func main() {
	root := &cobra.Command{
		Use:           "hausmeister",
		Short:         "Landlord dashboard backend: water cost apportionment and tenant bookkeeping",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd(), workerCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		log.Fatalf("hausmeister: %v", err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mux, st, err := api.NewMux(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := &http.Server{
				Addr:    ":" + cfg.Port,
				Handler: mux,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Printf("hausmeister listening on %s", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				log.Printf("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the scheduled missed-payments reminder worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := cron.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	migrateRoot := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	run := func(fn func(context.Context, string, string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if cfg.DBDriver == "memory" {
				return fmt.Errorf("the memory driver has no schema to migrate")
			}
			return fn(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
		}
	}

	migrateRoot.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  run(migrate.Up),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE:  run(migrate.Down),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the migration status",
			RunE:  run(migrate.Status),
		},
	)

	return migrateRoot
}
