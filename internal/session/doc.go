// Package session — контракт внешнего browser/extension-слоя.
//
// Orchestrator зависит только от интерфейсов Driver (login/check)
// и Factory (создание/сброс/закрытие сессии), а не от деталей UI.
// Драйверы регистрируются в явном Registry при старте; неизвестный
// сервис — ErrServiceNotFound.
//
// PlaywrightFactory и PlaywrightDriver — тонкая реализация контракта
// поверх Chromium: persistent context на изолированном профиле с
// прокси, селекторы сервисов задаются конфигурацией.
package session
