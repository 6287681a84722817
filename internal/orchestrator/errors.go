package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrStateUnknown — хранилище не ответило, состояние task неизвестно.
	// Пара в этом запуске не обрабатывается.
	ErrStateUnknown = errors.New("task state unknown")

	// ErrSessionFailed — не удалось поднять браузерную сессию.
	ErrSessionFailed = errors.New("session acquisition failed")

	// ErrCheckCrashed — check упал с инфраструктурной ошибкой
	// (в отличие от явного false). Task остаётся PENDING.
	ErrCheckCrashed = errors.New("check crashed")
)
