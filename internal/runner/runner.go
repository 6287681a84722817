package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Patrol/internal/assign"
	"github.com/shaiso/Patrol/internal/domain"
	"github.com/shaiso/Patrol/internal/orchestrator"
	"github.com/shaiso/Patrol/internal/prober"
	"github.com/shaiso/Patrol/internal/repo"
	"github.com/shaiso/Patrol/internal/scheduler"
	"github.com/shaiso/Patrol/internal/telemetry"
)

// Runner — один полный прогон батча под единым run_id.
//
// Этапы: валидация прокси → перезапись probe-результатов →
// назначение → загрузка пар → ступенчатый запуск оркестрации.
// Прогон всегда доходит до конца и печатает сводку, даже если
// отдельные пробы или пары упали; фатальна только недоступность
// хранилища (решается в main до создания Runner).
type Runner struct {
	probeRepo *repo.ProbeRepo
	credRepo  *repo.CredentialRepo
	pool      *prober.Pool
	assigner  *assign.Assigner
	orch      *orchestrator.Orchestrator
	stagger   *scheduler.Stagger
	services  []string
	logger    *slog.Logger
}

// Config — конфигурация Runner.
type Config struct {
	ProbeRepo *repo.ProbeRepo
	CredRepo  *repo.CredentialRepo
	Pool      *prober.Pool
	Assigner  *assign.Assigner
	Orch      *orchestrator.Orchestrator
	Stagger   *scheduler.Stagger

	// Services — сервисы, для которых обрабатывается каждая пара.
	Services []string

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		probeRepo: cfg.ProbeRepo,
		credRepo:  cfg.CredRepo,
		pool:      cfg.Pool,
		assigner:  cfg.Assigner,
		orch:      cfg.Orch,
		stagger:   cfg.Stagger,
		services:  cfg.Services,
		logger:    logger,
	}
}

// Summary — сводка одного прогона.
type Summary struct {
	// RunID — идентификатор прогона.
	RunID string `json:"run_id"`

	// ProxiesProbed — сколько прокси проверено.
	ProxiesProbed int `json:"proxies_probed"`

	// Pairs — сколько пар загружено из хранилища.
	Pairs int `json:"pairs"`

	// Units — сколько юнитов (пара × сервис) запущено.
	Units int `json:"units"`

	// FailedUnits — сколько юнитов завершилось ошибкой или panic.
	FailedUnits int `json:"failed_units"`
}

// Run выполняет полный прогон.
//
// proxies и secrets могут быть пустыми: тогда стадии валидации и
// назначения пропускаются, и прогон обрабатывает уже существующие
// привязки (типичный повторный запуск).
func (r *Runner) Run(ctx context.Context, proxies, secrets []string) (Summary, error) {
	runID := uuid.New().String()
	logger := telemetry.WithRunID(r.logger, runID)
	summary := Summary{RunID: runID}

	logger.Info("batch run starting",
		"candidate_proxies", len(proxies),
		"credentials", len(secrets),
		"services", r.services,
	)

	// 1-2. Валидация и перезапись probe-результатов.
	var probed []domain.ProbeResult
	if len(proxies) > 0 {
		var err error
		probed, err = r.pool.Validate(ctx, proxies)
		if err != nil {
			// Пул не стартовал — хранилище не трогаем, прогон прерван.
			return summary, fmt.Errorf("validate proxies: %w", err)
		}
		summary.ProxiesProbed = len(probed)

		if err := r.probeRepo.Replace(ctx, probed); err != nil {
			logger.Error("failed to persist probe results", "error", err)
		}
	}

	// 3. Назначение. Ошибки хранилища внутри назначения — no-op:
	// Assigner логирует их сам, прогон продолжается.
	if len(secrets) > 0 {
		r.assigner.Assign(ctx, secrets, probed)
	}

	// 4. Загрузка пар. Ошибка чтения не прерывает прогон: он доходит
	// до сводки, фатальна только недоступность хранилища при старте.
	pairs, err := r.credRepo.ListAssignedPairs(ctx)
	if err != nil {
		logger.Error("failed to list assigned pairs", "error", err)
		pairs = nil
	}
	summary.Pairs = len(pairs)

	// 5. Юнит на каждую комбинацию пара × сервис.
	var units []scheduler.Unit
	for i := range pairs {
		pair := pairs[i]
		for _, service := range r.services {
			service := service
			units = append(units, scheduler.Unit{
				Name: fmt.Sprintf("%s/%d/%s", service, pair.CredentialID, pair.Proxy),
				Run: func(ctx context.Context) error {
					return r.orch.ProcessPair(ctx, pair, service)
				},
			})
		}
	}
	summary.Units = len(units)

	// 6. Ступенчатый запуск, совместное ожидание.
	summary.FailedUnits = r.stagger.Run(ctx, units)

	telemetry.RunsTotal.Inc()
	logger.Info("batch run finished",
		"proxies_probed", summary.ProxiesProbed,
		"pairs", summary.Pairs,
		"units", summary.Units,
		"failed_units", summary.FailedUnits,
	)
	return summary, nil
}
