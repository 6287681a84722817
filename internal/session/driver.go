package session

import (
	"context"
	"strconv"
	"strings"
)

// Session — открытая браузерная сессия.
//
// Конкретный тип принадлежит Factory; Orchestrator передаёт Session
// обратно в Driver/Factory не заглядывая внутрь.
type Session interface {
	// ProfileDir возвращает каталог изолированного профиля сессии.
	ProfileDir() string
}

// Factory — фабрика сессий.
//
// Каждая пара (credential, proxy) получает свежую сессию на
// собственном каталоге профиля: cookies и состояние расширений
// не перетекают между парами.
type Factory interface {
	// New открывает сессию на изолированном профиле через прокси.
	New(ctx context.Context, profileDir, proxy string) (Session, error)

	// Reset возвращает браузерный контекст сессии к чистой вкладке.
	// Вызывается перед teardown на любом пути выхода.
	Reset(ctx context.Context, sess Session) error

	// Close закрывает сессию и освобождает ресурсы.
	Close(sess Session) error
}

// Driver — контракт внешнего сервиса: login и check.
//
// Селекторы и шаги навигации конкретного сервиса — тонкая прослойка
// за этим интерфейсом; Orchestrator зависит только от контракта.
type Driver interface {
	// Service возвращает имя сервиса (ключ в Registry).
	Service() string

	// Login выполняет вход. false — явный отказ сервиса (business
	// failure, считается потраченной попыткой); error —
	// инфраструктурная ошибка с той же семантикой для retry.
	Login(ctx context.Context, sess Session, secret, proxy string) (bool, error)

	// Check выполняет одну проверку после успешного login.
	// Retry для check нет. error — фатальная инфраструктурная
	// ошибка: task остаётся PENDING до следующего полного запуска.
	Check(ctx context.Context, sess Session, secret, proxy string) (CheckResult, error)
}

// CheckResult — сырой результат check.
type CheckResult struct {
	// OK=false — check явно сообщил false: терминальный FAILED.
	OK bool

	// Raw — сырое значение результата. Осмысленно только при OK.
	Raw string
}

// CoercePoint приводит сырое значение check к числу.
// Нечисловые значения (например, "N/A") коэрцируются в 0 —
// state при этом остаётся SUCCESS.
func CoercePoint(raw string) int {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return 0
}
