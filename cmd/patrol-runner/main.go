// Patrol Runner — выполняет один полный прогон батча.
//
// Runner:
//   - Проверяет прокси-кандидаты через Validator Pool
//   - Перезаписывает probe-результаты в хранилище
//   - Назначает прокси credentials
//   - Ступенчато запускает обработку всех пар и ждёт завершения
//
// Прогон всегда доходит до сводки; фатальна только недоступность
// хранилища или конфигурации сервисов.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Patrol/internal/runner"
	"github.com/shaiso/Patrol/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting patrol-runner")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Собираем конвейер
	pipeline, err := runner.Build(ctx, runner.OptionsFromEnv(), logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()
	logger.Info("pipeline ready")

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8091"
	if v := os.Getenv("RUNNER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
		}
	}()

	// Выполняем прогон
	summary, err := pipeline.Runner.Run(ctx, pipeline.Proxies, pipeline.Secrets)
	if err != nil {
		logger.Error("batch run aborted", "error", err)
		os.Exit(1)
	}

	logger.Info("patrol-runner finished",
		"run_id", summary.RunID,
		"proxies_probed", summary.ProxiesProbed,
		"pairs", summary.Pairs,
		"units", summary.Units,
		"failed_units", summary.FailedUnits,
	)
}
