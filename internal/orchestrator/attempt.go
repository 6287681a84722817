package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shaiso/Patrol/internal/domain"
	"github.com/shaiso/Patrol/internal/session"
	"github.com/shaiso/Patrol/internal/telemetry"
)

// attemptOutcome — исход одной попытки.
type attemptOutcome int

const (
	// outcomeLoginFailed — login вернул false или ошибку; попытка
	// потрачена, можно повторить в пределах бюджета.
	outcomeLoginFailed attemptOutcome = iota

	// outcomeCheckFalse — login прошёл, check явно вернул false.
	// Терминальный FAILED.
	outcomeCheckFalse

	// outcomeSuccess — login и check прошли; point содержит результат.
	outcomeSuccess
)

// runAttempts ведёт ограниченный цикл попыток для пары.
//
// Каждая попытка получает свежую сессию на изолированном профиле.
// Инфраструктурный сбой (сессия не поднялась, check упал) прерывает
// цикл фатально: строка task не трогается и остаётся PENDING до
// следующего полного запуска; каталог профиля при этом опционально
// удаляется.
func (o *Orchestrator) runAttempts(ctx context.Context, logger *slog.Logger, pair domain.Pair, service string, driver session.Driver) error {
	profileDir := o.profileDir(pair, service)

	for attempt := 1; attempt <= o.maxLoginRetries; attempt++ {
		logger.Info("starting attempt", "attempt", attempt, "max", o.maxLoginRetries)

		outcome, point, err := o.attemptOnce(ctx, logger, pair, driver, profileDir)
		if err != nil {
			// Фатальная ошибка: task остаётся PENDING.
			o.handleCrash(logger, service, profileDir, err)
			return err
		}

		switch outcome {
		case outcomeSuccess:
			o.recordRetryCount(ctx, logger, pair, service, attempt)
			if err := o.taskRepo.SetState(ctx, pair.CredentialID, pair.Proxy, service, domain.TaskStateSuccess, point); err != nil {
				// Запись не подтверждена — состояние неизвестно, не успех.
				logger.Error("failed to persist SUCCESS state", "error", err)
				return nil
			}
			telemetry.TasksTotal.WithLabelValues(service, string(domain.TaskStateSuccess)).Inc()
			logger.Info("task succeeded", "point", point, "attempts", attempt)
			return nil

		case outcomeCheckFalse:
			o.recordRetryCount(ctx, logger, pair, service, attempt)
			o.failTask(ctx, logger, pair, service)
			logger.Info("task failed: check reported false", "attempts", attempt)
			return nil

		case outcomeLoginFailed:
			telemetry.LoginAttempts.WithLabelValues(service, "fail").Inc()
			logger.Warn("login attempt failed", "attempt", attempt)
		}
	}

	// Бюджет попыток исчерпан — терминальный FAILED.
	o.recordRetryCount(ctx, logger, pair, service, o.maxLoginRetries)
	o.failTask(ctx, logger, pair, service)
	logger.Info("task failed: login retries exhausted", "attempts", o.maxLoginRetries)
	return nil
}

// attemptOnce выполняет одну попытку: сессия → login → check.
//
// Сессия сбрасывается к чистой вкладке и закрывается на ЛЮБОМ пути
// выхода — это защитная уборка, не ветка обработки ошибок.
func (o *Orchestrator) attemptOnce(ctx context.Context, logger *slog.Logger, pair domain.Pair, driver session.Driver, profileDir string) (attemptOutcome, int, error) {
	sess, err := o.factory.New(ctx, profileDir, pair.Proxy)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	defer func() {
		if err := o.factory.Reset(ctx, sess); err != nil {
			logger.Warn("failed to reset session", "error", err)
		}
		if err := o.factory.Close(sess); err != nil {
			logger.Warn("failed to close session", "error", err)
		}
	}()

	ok, err := driver.Login(ctx, sess, pair.SecretValue, pair.Proxy)
	if err != nil {
		// Ошибка login эквивалентна явному false: попытка потрачена.
		logger.Warn("login returned error", "error", err)
		return outcomeLoginFailed, 0, nil
	}
	if !ok {
		return outcomeLoginFailed, 0, nil
	}
	telemetry.LoginAttempts.WithLabelValues(driver.Service(), "success").Inc()

	// Ровно один check, без retry.
	result, err := driver.Check(ctx, sess, pair.SecretValue, pair.Proxy)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrCheckCrashed, err)
	}
	if !result.OK {
		return outcomeCheckFalse, 0, nil
	}

	return outcomeSuccess, session.CoercePoint(result.Raw), nil
}

// failTask фиксирует терминальный FAILED и пишет запись в журнал отказов.
func (o *Orchestrator) failTask(ctx context.Context, logger *slog.Logger, pair domain.Pair, service string) {
	if err := o.taskRepo.SetState(ctx, pair.CredentialID, pair.Proxy, service, domain.TaskStateFailed, 0); err != nil {
		logger.Error("failed to persist FAILED state", "error", err)
	}
	telemetry.TasksTotal.WithLabelValues(service, string(domain.TaskStateFailed)).Inc()

	if o.failures != nil {
		if err := o.failures.Append(FailureRecord{
			CredentialSecret: pair.SecretValue,
			Proxy:            pair.Proxy,
			Service:          service,
		}); err != nil {
			logger.Error("failed to append failure record", "error", err)
		}
	}
}

// recordRetryCount сохраняет потраченные попытки. Информационная
// запись: её ошибка не меняет судьбу task.
func (o *Orchestrator) recordRetryCount(ctx context.Context, logger *slog.Logger, pair domain.Pair, service string, attempts int) {
	if err := o.taskRepo.SetRetryCount(ctx, pair.CredentialID, pair.Proxy, service, attempts); err != nil {
		logger.Warn("failed to record retry count", "error", err)
	}
}

// handleCrash применяет политику уборки после фатальной ошибки.
func (o *Orchestrator) handleCrash(logger *slog.Logger, service, profileDir string, cause error) {
	telemetry.TasksTotal.WithLabelValues(service, string(domain.TaskStatePending)).Inc()
	logger.Error("attempt crashed, task stays pending", "error", cause)

	if o.removeProfileOnCrash {
		if err := os.RemoveAll(profileDir); err != nil {
			logger.Warn("failed to remove profile dir", "dir", profileDir, "error", err)
		}
	}
}
