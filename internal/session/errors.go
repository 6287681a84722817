package session

import "errors"

// Ошибки session-слоя.
var (
	// ErrServiceNotFound — драйвер для сервиса не зарегистрирован.
	ErrServiceNotFound = errors.New("service driver not found")

	// ErrFactoryNotReady — Factory не инициализирована.
	ErrFactoryNotReady = errors.New("session factory not initialized")

	// ErrWrongSessionType — сессия создана другой Factory.
	ErrWrongSessionType = errors.New("session type does not belong to this factory")
)
