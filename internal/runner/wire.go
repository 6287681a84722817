package runner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/Patrol/internal/assign"
	"github.com/shaiso/Patrol/internal/orchestrator"
	"github.com/shaiso/Patrol/internal/prober"
	"github.com/shaiso/Patrol/internal/repo"
	"github.com/shaiso/Patrol/internal/scheduler"
	"github.com/shaiso/Patrol/internal/session"
)

// Options — параметры полной сборки конвейера.
type Options struct {
	DBPath          string
	ProxiesFile     string
	CredentialsFile string
	ServicesFile    string

	ProbeTarget    string
	ProbeChunkSize int
	ProbeTimeout   time.Duration

	StaggerDelay    time.Duration
	MaxLoginRetries int

	ProfileRoot          string
	RemoveProfileOnCrash bool
	FailuresPath         string
	FlaggedPath          string

	Headless      bool
	ExtensionDirs []string
}

// OptionsFromEnv читает параметры из переменных окружения,
// применяя значения по умолчанию.
func OptionsFromEnv() Options {
	opts := Options{
		DBPath:          os.Getenv("PATROL_DB"),
		ProxiesFile:     envOr("PROXIES_FILE", "proxies.txt"),
		CredentialsFile: envOr("CREDENTIALS_FILE", "credentials.txt"),
		ServicesFile:    envOr("SERVICES_FILE", "services.json"),
		ProbeTarget:     envOr("PROBE_TARGET", "https://www.google.com"),
		ProbeChunkSize:  envInt("PROBE_CHUNK_SIZE", 10),
		ProbeTimeout:    time.Duration(envInt("PROBE_TIMEOUT_SEC", 10)) * time.Second,
		StaggerDelay:    time.Duration(envInt("STAGGER_SEC", 45)) * time.Second,
		MaxLoginRetries: envInt("MAX_LOGIN_RETRIES", 2),
		ProfileRoot:     envOr("PROFILE_ROOT", "profiles"),
		FailuresPath:    envOr("FAILURES_PATH", "failures.json"),
		FlaggedPath:     envOr("FLAGGED_PATH", "flagged_proxies.json"),
		Headless:        os.Getenv("HEADLESS") != "false",
	}
	opts.RemoveProfileOnCrash = os.Getenv("REMOVE_PROFILE_ON_CRASH") == "true"
	if dirs := os.Getenv("EXTENSION_DIRS"); dirs != "" {
		opts.ExtensionDirs = strings.Split(dirs, ",")
	}
	return opts
}

// Pipeline — собранный конвейер вместе с ресурсами для закрытия.
type Pipeline struct {
	Runner  *Runner
	Proxies []string
	Secrets []string

	db      *sql.DB
	factory *session.PlaywrightFactory
}

// Close освобождает ресурсы конвейера.
func (p *Pipeline) Close() {
	if p.factory != nil {
		p.factory.Stop()
	}
	if p.db != nil {
		p.db.Close()
	}
}

// Build собирает конвейер из Options: хранилище, реестр драйверов,
// playwright-фабрика, оркестратор, ступенчатый запуск.
// Единственная фатальная для всего прогона ошибка — недоступность
// хранилища (и отсутствие конфигурации сервисов).
func Build(ctx context.Context, opts Options, logger *slog.Logger) (*Pipeline, error) {
	db, err := repo.Open(ctx, opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	services, err := loadServices(opts.ServicesFile)
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(services) == 0 {
		db.Close()
		return nil, fmt.Errorf("no services configured in %s", opts.ServicesFile)
	}

	registry := session.NewRegistry()
	serviceNames := make([]string, 0, len(services))
	for _, svc := range services {
		registry.Register(session.NewPlaywrightDriver(svc))
		serviceNames = append(serviceNames, svc.Name)
	}

	// Валидность расширений — одно вычисление при старте, дальше
	// значение (redesign: без процесс-глобального кэша).
	extensions := session.Preflight(opts.ExtensionDirs)
	if len(opts.ExtensionDirs) > 0 && !extensions.Valid {
		logger.Warn("extension preflight failed, sessions start without extensions",
			"dirs", opts.ExtensionDirs,
		)
	}

	factory, err := session.NewPlaywrightFactory(session.PlaywrightConfig{
		Headless:   opts.Headless,
		Extensions: extensions,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("start session factory: %w", err)
	}

	orch := orchestrator.New(orchestrator.Config{
		TaskRepo:             repo.NewTaskRepo(db),
		Registry:             registry,
		Factory:              factory,
		Failures:             orchestrator.NewFailureLog(opts.FailuresPath),
		MaxLoginRetries:      opts.MaxLoginRetries,
		ProfileRoot:          opts.ProfileRoot,
		RemoveProfileOnCrash: opts.RemoveProfileOnCrash,
		Logger:               logger,
	})

	r := New(Config{
		ProbeRepo: repo.NewProbeRepo(db),
		CredRepo:  repo.NewCredentialRepo(db),
		Pool: prober.New(prober.Config{
			TargetURL:  opts.ProbeTarget,
			ServiceTag: serviceNames[0],
			ChunkSize:  opts.ProbeChunkSize,
			Timeout:    opts.ProbeTimeout,
			Logger:     logger,
		}),
		Assigner: assign.New(assign.Config{
			CredRepo:    repo.NewCredentialRepo(db),
			FlaggedPath: opts.FlaggedPath,
			Logger:      logger,
		}),
		Orch: orch,
		Stagger: scheduler.NewStagger(scheduler.StaggerConfig{
			Delay:  opts.StaggerDelay,
			Logger: logger,
		}),
		Services: serviceNames,
		Logger:   logger,
	})

	proxies, err := ReadLines(opts.ProxiesFile)
	if err != nil {
		logger.Error("failed to read proxies file", "error", err)
	}
	secrets, err := ReadLines(opts.CredentialsFile)
	if err != nil {
		logger.Error("failed to read credentials file", "error", err)
	}

	return &Pipeline{
		Runner:  r,
		Proxies: proxies,
		Secrets: secrets,
		db:      db,
		factory: factory,
	}, nil
}

// loadServices читает конфигурацию драйверов сервисов.
func loadServices(path string) ([]session.ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read services config: %w", err)
	}

	var services []session.ServiceConfig
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, fmt.Errorf("parse services config: %w", err)
	}
	return services, nil
}

// --- Env helpers ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
