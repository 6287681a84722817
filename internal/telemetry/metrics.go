package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики системы.
//
// Экспортируются на /metrics endpoint в patrol-runner и patrol-scheduler.
var (
	// ProbesTotal — количество проверок прокси по результату.
	// outcome: "success" | "fail"
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patrol",
		Name:      "probes_total",
		Help:      "Proxy probes by outcome.",
	}, []string{"outcome"})

	// ProbeDuration — длительность одной проверки прокси.
	ProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "patrol",
		Name:      "probe_duration_seconds",
		Help:      "Duration of a single proxy probe.",
		Buckets:   prometheus.DefBuckets,
	})

	// TasksTotal — завершённые tasks по итоговому состоянию.
	// state: "SUCCESS" | "FAILED" | "PENDING" (фатальная ошибка, осталась pending)
	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patrol",
		Name:      "tasks_total",
		Help:      "Processed tasks by final state.",
	}, []string{"service", "state"})

	// TasksSkipped — tasks, пропущенные как уже терминальные.
	TasksSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patrol",
		Name:      "tasks_skipped_total",
		Help:      "Tasks skipped because they were already terminal.",
	}, []string{"service"})

	// LoginAttempts — попытки login по результату.
	// outcome: "success" | "fail"
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patrol",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"service", "outcome"})

	// RunsTotal — полные прогоны batch'а.
	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "patrol",
		Name:      "runs_total",
		Help:      "Completed batch runs.",
	})
)
