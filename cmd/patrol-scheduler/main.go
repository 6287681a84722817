// Patrol Scheduler — периодически выполняет полный прогон батча.
//
// Расписание задаётся либо cron-выражением (SCHEDULE_CRON), либо
// интервалом в секундах (SCHEDULE_INTERVAL_SEC). Между прогонами
// процесс спит до следующего due-времени.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Patrol/internal/runner"
	"github.com/shaiso/Patrol/internal/scheduler"
	"github.com/shaiso/Patrol/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting patrol-scheduler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := &scheduler.Schedule{
		CronExpr: os.Getenv("SCHEDULE_CRON"),
		Timezone: os.Getenv("SCHEDULE_TZ"),
	}
	if v := os.Getenv("SCHEDULE_INTERVAL_SEC"); v != "" && sched.CronExpr == "" {
		sec, err := time.ParseDuration(v + "s")
		if err == nil {
			sched.IntervalSec = int(sec.Seconds())
		}
	}
	if sched.IsCron() {
		if err := scheduler.ValidateCronExpr(sched.CronExpr); err != nil {
			logger.Error("invalid schedule", "error", err)
			os.Exit(1)
		}
	} else if !sched.IsInterval() {
		// Без расписания работаем раз в сутки.
		sched.IntervalSec = int((24 * time.Hour).Seconds())
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8092"
	if v := os.Getenv("SCHEDULER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	for {
		// Прогон. Ошибка сборки или прогона не роняет планировщик:
		// следующий due-момент получит новую попытку.
		runOnce(ctx, logger)

		next, err := scheduler.CalculateNextDue(sched, time.Now())
		if err != nil {
			logger.Error("failed to calculate next due", "error", err)
			os.Exit(1)
		}
		logger.Info("next run scheduled", "next_due", next)

		select {
		case <-ctx.Done():
			logger.Info("patrol-scheduler stopped")
			return
		case <-time.After(time.Until(next)):
		}
	}
}

// runOnce собирает конвейер и выполняет один прогон.
func runOnce(ctx context.Context, logger *slog.Logger) {
	pipeline, err := runner.Build(ctx, runner.OptionsFromEnv(), logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return
	}
	defer pipeline.Close()

	summary, err := pipeline.Runner.Run(ctx, pipeline.Proxies, pipeline.Secrets)
	if err != nil {
		logger.Error("batch run aborted", "error", err)
		return
	}

	logger.Info("batch run completed",
		"run_id", summary.RunID,
		"pairs", summary.Pairs,
		"units", summary.Units,
		"failed_units", summary.FailedUnits,
	)
}
