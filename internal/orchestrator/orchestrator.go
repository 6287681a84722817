package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/shaiso/Patrol/internal/domain"
	"github.com/shaiso/Patrol/internal/repo"
	"github.com/shaiso/Patrol/internal/session"
	"github.com/shaiso/Patrol/internal/telemetry"
)

// Default configuration values.
const (
	defaultMaxLoginRetries = 2
	defaultProfileRoot     = "profiles"
)

// Orchestrator — машина состояний обработки пар.
//
// Для каждой пары (credential, proxy) и сервиса Orchestrator:
//   - гарантирует ровно одну строку task в хранилище (ленивое создание)
//   - целиком пропускает пары в терминальном состоянии
//   - ведёт ограниченный цикл попыток login, затем ровно один check
//   - транзакционно фиксирует результат (SUCCESS/FAILED + point)
//
// Асимметрия обработки ошибок сознательная: явный business-отказ
// (исчерпанные попытки login, check==false) терминален, а
// инфраструктурный сбой (сессия не поднялась, check упал) оставляет
// task в PENDING — он будет переигран следующим полным запуском.
type Orchestrator struct {
	// Repositories
	taskRepo *repo.TaskRepo

	// Session layer
	registry *session.Registry
	factory  session.Factory

	// Failure artifact
	failures *FailureLog

	// Configuration
	maxLoginRetries      int
	profileRoot          string
	removeProfileOnCrash bool

	// Logger
	logger *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// TaskRepo — репозиторий tasks.
	TaskRepo *repo.TaskRepo

	// Registry — реестр драйверов сервисов.
	Registry *session.Registry

	// Factory — фабрика браузерных сессий.
	Factory session.Factory

	// Failures — журнал терминальных отказов.
	Failures *FailureLog

	// MaxLoginRetries — бюджет попыток login (default: 2).
	// Бюджет живёт в памяти запуска: рестарт процесса обнуляет его
	// для всех ещё pending tasks.
	MaxLoginRetries int

	// ProfileRoot — корень каталогов изолированных профилей (default: "profiles").
	ProfileRoot string

	// RemoveProfileOnCrash — удалять каталог профиля при фатальной
	// ошибке попытки (policy-controlled).
	RemoveProfileOnCrash bool

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	maxRetries := cfg.MaxLoginRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxLoginRetries
	}

	profileRoot := cfg.ProfileRoot
	if profileRoot == "" {
		profileRoot = defaultProfileRoot
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		taskRepo:             cfg.TaskRepo,
		registry:             cfg.Registry,
		factory:              cfg.Factory,
		failures:             cfg.Failures,
		maxLoginRetries:      maxRetries,
		profileRoot:          profileRoot,
		removeProfileOnCrash: cfg.RemoveProfileOnCrash,
		logger:               logger,
	}
}

// ProcessPair обрабатывает одну пару для одного сервиса.
//
// Порядок строгий: ensure task → терминальный skip → login-цикл →
// check → запись состояния. Ошибки пары не распространяются на
// соседние пары — Scheduler ловит и логирует их на границе юнита.
func (o *Orchestrator) ProcessPair(ctx context.Context, pair domain.Pair, service string) error {
	logger := telemetry.WithService(
		telemetry.WithProxy(
			telemetry.WithCredentialID(o.logger, pair.CredentialID),
			pair.Proxy,
		),
		service,
	)

	// 1. Ленивое создание строки task. Ошибка хранилища — "состояние
	// неизвестно", не подтверждение: логируем и продолжаем, GetState
	// решит судьбу пары.
	if err := o.taskRepo.Ensure(ctx, pair.CredentialID, pair.Proxy, service); err != nil {
		logger.Error("failed to ensure task row", "error", err)
	}

	// 2. Терминальные состояния пропускаются целиком: без сессии,
	// без login/check, без записи.
	state, found, err := o.taskRepo.GetState(ctx, pair.CredentialID, pair.Proxy, service)
	if err != nil {
		logger.Error("failed to read task state", "error", err)
		return fmt.Errorf("%w: %v", ErrStateUnknown, err)
	}
	if found && state.IsTerminal() {
		logger.Debug("task already terminal, skipping", "state", state)
		telemetry.TasksSkipped.WithLabelValues(service).Inc()
		return nil
	}

	// 3. Драйвер сервиса.
	driver, err := o.registry.Lookup(service)
	if err != nil {
		return err
	}

	return o.runAttempts(ctx, logger, pair, service, driver)
}

// profileDir возвращает изолированный каталог профиля пары.
// Свой каталог на каждую комбинацию (credential, proxy): cookies и
// состояние расширений между парами не пересекаются.
func (o *Orchestrator) profileDir(pair domain.Pair, service string) string {
	name := fmt.Sprintf("%s_%d_%s", service, pair.CredentialID, sanitizeProxy(pair.Proxy))
	return filepath.Join(o.profileRoot, name)
}

// sanitizeProxy делает из прокси безопасное имя каталога.
func sanitizeProxy(proxy string) string {
	replacer := strings.NewReplacer(
		"://", "_",
		":", "_",
		"/", "_",
		"@", "_",
	)
	return replacer.Replace(proxy)
}

// IsFatal возвращает true для ошибок, оставляющих task в PENDING.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSessionFailed) || errors.Is(err, ErrCheckCrashed)
}
