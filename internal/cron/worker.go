// Package cron runs the scheduled missed-payments reminder. An advisory
// lock keeps multi-instance deployments from mailing tenants twice.
package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bher20/hausmeister/internal/alerting"
	"github.com/bher20/hausmeister/internal/billing"
	"github.com/bher20/hausmeister/internal/config"
	"github.com/bher20/hausmeister/internal/metrics"
	"github.com/bher20/hausmeister/internal/notification"
	"github.com/bher20/hausmeister/internal/report"
	"github.com/bher20/hausmeister/internal/storage"
)

const (
	jobName = "payment_reminders"
	lockKey = int64(7340)
	// scheduleSettingKey lets the schedule be changed at runtime via the
	// settings API without restarting the worker.
	scheduleSettingKey = "reminder_schedule"
)

// Run starts the reminder worker and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config) error {
	st, err := storage.Open(ctx, storage.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	notifier := notification.NewService(st)
	alerter := alerting.NewAlerter(alerting.DefaultAlertConfig())

	scheduleExpr := cfg.CronSchedule
	if val, err := st.GetSetting(ctx, scheduleSettingKey); err == nil && val != "" {
		scheduleExpr = val
	}
	sched, err := cron.ParseStandard(scheduleExpr)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", scheduleExpr, err)
	}

	log.Printf("cron worker starting, schedule=%q driver=%s", scheduleExpr, cfg.DBDriver)

	// Control loop: a coarse ticker checks for schedule overrides and
	// fires the job when its next run time has passed.
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	nextRun := sched.Next(time.Now())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if val, err := st.GetSetting(ctx, scheduleSettingKey); err == nil && val != "" && val != scheduleExpr {
				if s, err := cron.ParseStandard(val); err == nil {
					log.Printf("cron: schedule updated from %q to %q", scheduleExpr, val)
					scheduleExpr = val
					sched = s
					nextRun = sched.Next(time.Now())
				} else {
					log.Printf("cron: ignoring invalid schedule override %q: %v", val, err)
				}
			}

			if time.Now().Before(nextRun) {
				continue
			}
			nextRun = sched.Next(time.Now())

			started := time.Now()

			ok, err := st.AcquireAdvisoryLock(ctx, lockKey)
			if err != nil {
				log.Printf("cron: acquire advisory lock failed: %v", err)
				metrics.UpdateJobMetrics(jobName, started, err)
				continue
			}
			if !ok {
				log.Printf("cron: advisory lock held by another worker, skipping run")
				continue
			}

			var runErr error
			var failures []alerting.TenantFailure
			func() {
				defer func() {
					if _, err := st.ReleaseAdvisoryLock(ctx, lockKey); err != nil {
						log.Printf("cron: release advisory lock failed: %v", err)
					}
				}()
				failures, runErr = remindAll(ctx, st, notifier, started)
			}()

			metrics.UpdateJobMetrics(jobName, started, runErr)
			dur := time.Since(started)
			errMsg := ""
			if runErr != nil {
				errMsg = runErr.Error()
			}
			if err := st.UpdateScheduledJob(ctx, jobName, started, dur, runErr == nil, errMsg); err != nil {
				log.Printf("cron: update scheduled_jobs failed: %v", err)
			}

			if runErr != nil || len(failures) > 0 {
				log.Printf("cron: job %s completed with %d failures (duration=%s)", jobName, len(failures), dur)
				alert := alerting.JobAlert{
					JobName:   jobName,
					Error:     errMsg,
					Duration:  dur,
					Failures:  failures,
					Timestamp: time.Now(),
				}
				if err := alerter.SendJobAlert(ctx, alert); err != nil {
					log.Printf("cron: send alert failed: %v", err)
				}
			} else {
				log.Printf("cron: job %s completed successfully (duration=%s)", jobName, dur)
			}
		}
	}
}

// remindAll walks every house and mails each tenant in arrears. A tenant
// without an email address is skipped silently; delivery errors are
// collected so one bouncing mailbox does not abort the run.
func remindAll(ctx context.Context, st storage.Storage, notifier *notification.Service, asOf time.Time) ([]alerting.TenantFailure, error) {
	houses, err := st.ListHouses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list houses: %w", err)
	}

	var failures []alerting.TenantFailure
	for _, house := range houses {
		tenants, err := st.ListTenants(ctx, house.ID)
		if err != nil {
			return failures, fmt.Errorf("list tenants of %s: %w", house.ID, err)
		}
		records, err := st.ListFinanceRecords(ctx, house.ID)
		if err != nil {
			return failures, fmt.Errorf("list finance records of %s: %w", house.ID, err)
		}
		billingRecords := report.ToBillingRecords(records)

		for _, t := range tenants {
			if t.Email == "" {
				continue
			}
			result := billing.MissedPayments(report.ToBillingTenant(t), billingRecords, asOf, true)
			if result.TotalAmount <= 0 {
				continue
			}
			if err := notifier.SendPaymentReminder(ctx, t, result); err != nil {
				log.Printf("cron: reminder for tenant %s failed: %v", t.ID, err)
				failures = append(failures, alerting.TenantFailure{
					TenantID:   t.ID,
					TenantName: t.Name,
					Error:      err.Error(),
				})
			}
		}
	}
	return failures, nil
}
