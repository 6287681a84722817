package prober

import "errors"

// Ошибки Validator Pool.
var (
	// ErrNoProxies — список кандидатов пуст.
	ErrNoProxies = errors.New("no candidate proxies")

	// ErrPoolAborted — пул остановлен до запуска workers
	// (например, отменён context). Хранилище при этом не тронуто.
	ErrPoolAborted = errors.New("validation pool aborted")
)
