package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// defaultStaggerDelay — пауза между стартами юнитов по умолчанию.
const defaultStaggerDelay = 45 * time.Second

// Unit — один запускаемый юнит работы (обычно обработка одной пары).
type Unit struct {
	// Name — имя юнита для логов.
	Name string

	// Run — тело юнита.
	Run func(ctx context.Context) error
}

// Stagger — ступенчатый запуск юнитов.
//
// Юниты стартуют в порядке списка, между стартами — фиксированная
// пауза. Запущенный юнит — fire-and-forget: его ошибка или panic
// ловится на границе и логируется, соседние юниты не затрагиваются.
// Отмены запущенных юнитов нет — стартовав, юнит работает до конца.
// В конце все юниты ожидаются совместно.
type Stagger struct {
	delay  time.Duration
	logger *slog.Logger
}

// StaggerConfig — конфигурация Stagger.
type StaggerConfig struct {
	// Delay — пауза между стартами (default: 45s).
	Delay time.Duration

	// Logger
	Logger *slog.Logger
}

// NewStagger создаёт новый Stagger.
func NewStagger(cfg StaggerConfig) *Stagger {
	delay := cfg.Delay
	if delay <= 0 {
		delay = defaultStaggerDelay
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Stagger{
		delay:  delay,
		logger: logger,
	}
}

// Run запускает все юниты со ступенчатой задержкой и ждёт их
// завершения. Возвращает количество юнитов, завершившихся с ошибкой
// (включая panic).
func (s *Stagger) Run(ctx context.Context, units []Unit) int {
	if len(units) == 0 {
		return 0
	}

	s.logger.Info("staggered launch starting",
		"units", len(units),
		"stagger_delay", s.delay,
	)

	var wg sync.WaitGroup
	var failed atomic.Int64

	for i := range units {
		unit := units[i]

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.runUnit(ctx, unit); err != nil {
				failed.Add(1)
			}
		}()

		// Пауза после каждого старта, кроме последнего.
		if i < len(units)-1 {
			time.Sleep(s.delay)
		}
	}

	wg.Wait()

	s.logger.Info("staggered launch finished",
		"units", len(units),
		"failed", failed.Load(),
	)
	return int(failed.Load())
}

// runUnit выполняет юнит, превращая panic и error в логируемое
// событие на границе юнита.
func (s *Stagger) runUnit(ctx context.Context, unit Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("unit panicked", "unit", unit.Name, "panic", r)
			err = ErrUnitPanicked
		}
	}()

	if err := unit.Run(ctx); err != nil {
		s.logger.Error("unit failed", "unit", unit.Name, "error", err)
		return err
	}

	s.logger.Debug("unit completed", "unit", unit.Name)
	return nil
}
