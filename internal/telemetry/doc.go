// Package telemetry обеспечивает наблюдаемость конвейера.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики (пробы, tasks, login-попытки)
//
// Все бинарники используют единый формат логирования; patrol-runner и
// patrol-scheduler экспортируют метрики на /metrics endpoint.
package telemetry
