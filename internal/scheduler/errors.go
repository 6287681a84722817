package scheduler

import "errors"

// Ошибки планировщика.
var (
	// ErrUnitPanicked — юнит упал с panic; пойман на границе юнита.
	ErrUnitPanicked = errors.New("unit panicked")

	// ErrNoSchedule — не задан ни cron, ни интервал.
	ErrNoSchedule = errors.New("schedule has neither cron_expr nor interval_sec")
)
