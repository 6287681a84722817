package assign

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/shaiso/Patrol/internal/domain"
	"github.com/shaiso/Patrol/internal/repo"
)

// defaultMaxPerCredential — прокси на один credential по умолчанию.
const defaultMaxPerCredential = 1

// Assigner — стадия назначения прокси credentials.
//
// Жадный алгоритм: прокси потребляются с начала списка кандидатов
// в порядке входа, независимо от их success/fail-истории — прокси,
// проваливший все пробы, остаётся пригодным для назначения, если
// вызывающая сторона не отфильтровала его заранее. Когда пул
// исчерпан, оставшиеся credentials получают пустой набор: без
// wraparound и без повторного использования уже назначенных прокси.
// Балансировки по достижимости здесь нет — это сознательно простая
// политика.
type Assigner struct {
	credRepo    *repo.CredentialRepo
	maxPerCred  int
	flaggedPath string
	logger      *slog.Logger
}

// Config — конфигурация Assigner.
type Config struct {
	// CredRepo — репозиторий credentials/assignments.
	CredRepo *repo.CredentialRepo

	// MaxPerCredential — верхняя граница прокси на credential (default: 1).
	MaxPerCredential int

	// FlaggedPath — путь для отчёта о прокси с fail-тегами.
	// Пустой путь — отчёт только в лог.
	FlaggedPath string

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Assigner.
func New(cfg Config) *Assigner {
	maxPerCred := cfg.MaxPerCredential
	if maxPerCred <= 0 {
		maxPerCred = defaultMaxPerCredential
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Assigner{
		credRepo:    cfg.CredRepo,
		maxPerCred:  maxPerCred,
		flaggedPath: cfg.FlaggedPath,
		logger:      logger,
	}
}

// CredentialProxies — результат назначения для одного credential.
type CredentialProxies struct {
	// SecretValue — секрет credential.
	SecretValue string `json:"secret_value"`

	// Proxies — назначенные прокси (может быть пустым при исчерпании пула).
	Proxies []string `json:"proxies"`
}

// Assign связывает credentials с прокси и персистит привязки.
//
// Порядок побочных эффектов: для каждой привязки — EnsureCredential
// (insert-if-absent по секрету), затем EnsureAssignment
// (insert-if-absent по прокси). Ошибка хранилища на любой привязке —
// "запись не подтверждена", не отказ назначения: она логируется,
// привязка пропускается, соседние credentials обрабатываются дальше.
// Прокси, несущие хотя бы один fail-тег, дополнительно попадают в
// отчёт для оператора, но из назначения НЕ исключаются.
func (a *Assigner) Assign(ctx context.Context, secrets []string, probed []domain.ProbeResult) []CredentialProxies {
	results := make([]CredentialProxies, 0, len(secrets))
	next := 0

	for _, secret := range secrets {
		cp := CredentialProxies{
			SecretValue: secret,
			Proxies:     []string{},
		}

		for len(cp.Proxies) < a.maxPerCred && next < len(probed) {
			cp.Proxies = append(cp.Proxies, probed[next].Proxy)
			next++
		}

		if len(cp.Proxies) > 0 {
			a.persist(ctx, secret, cp.Proxies)
		}

		results = append(results, cp)
	}

	assigned := next
	a.logger.Info("assignment completed",
		"credentials", len(secrets),
		"proxies_available", len(probed),
		"proxies_assigned", assigned,
	)

	if err := a.reportFlagged(probed); err != nil {
		// Отчёт вспомогательный: его ошибка не отменяет назначение.
		a.logger.Error("failed to write flagged proxies report", "error", err)
	}

	return results
}

// persist записывает привязки одного credential в хранилище.
// Ошибки не распространяются: назначение остаётся в результате,
// а неподтверждённая запись видна только в логе.
func (a *Assigner) persist(ctx context.Context, secret string, proxies []string) {
	credID, err := a.credRepo.EnsureCredential(ctx, secret)
	if err != nil {
		a.logger.Error("failed to persist credential", "error", err)
		return
	}
	for _, proxy := range proxies {
		if err := a.credRepo.EnsureAssignment(ctx, credID, proxy); err != nil {
			a.logger.Error("failed to persist assignment", "proxy", proxy, "error", err)
		}
	}
}

// reportFlagged записывает прокси с fail-тегами в side-отчёт.
func (a *Assigner) reportFlagged(probed []domain.ProbeResult) error {
	var flagged []domain.ProbeResult
	for i := range probed {
		if probed[i].HasFailures() {
			flagged = append(flagged, probed[i])
		}
	}
	if len(flagged) == 0 {
		return nil
	}

	a.logger.Warn("proxies with failed probes were assigned anyway",
		"count", len(flagged),
	)

	if a.flaggedPath == "" {
		return nil
	}

	data, err := json.MarshalIndent(flagged, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal flagged proxies: %w", err)
	}
	if err := os.WriteFile(a.flaggedPath, data, 0o644); err != nil {
		return fmt.Errorf("write flagged proxies: %w", err)
	}
	return nil
}
