package prober

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/shaiso/Patrol/internal/domain"
	"github.com/shaiso/Patrol/internal/telemetry"
)

// Default configuration values.
const (
	defaultChunkSize = 10
	defaultTimeout   = 10 * time.Second
)

// Pool — пул параллельной проверки прокси.
//
// Разбивает список кандидатов на чанки фиксированного размера,
// каждый чанк проверяется отдельным worker'ом. Worker выполняет
// по одному HTTP-запросу к фиксированной цели через каждый прокси
// своего чанка; прокси классифицируется как success строго при
// статусе 200, любая ошибка (таймаут, connection refused, TLS,
// кривой URL прокси) — fail без различения причин. Повторных
// проб нет: неудача пробы — терминальная классификация, не ошибка пула.
//
// Падение одного worker'а (panic) изолируется: все прокси его чанка
// классифицируются как fail, соседние чанки не затрагиваются,
// итоговый набор остаётся полным.
type Pool struct {
	targetURL  string
	serviceTag string
	chunkSize  int
	timeout    time.Duration
	logger     *slog.Logger

	// probe выполняет одну пробу; в тестах подменяется.
	probe func(ctx context.Context, proxy string) domain.ProbeResult
}

// Config — конфигурация Pool.
type Config struct {
	// TargetURL — фиксированная цель проверки (обязательно).
	TargetURL string

	// ServiceTag — тег сервиса, записываемый в success/fail (обязательно).
	ServiceTag string

	// ChunkSize — размер чанка (default: 10).
	ChunkSize int

	// Timeout — таймаут одной пробы (default: 10s).
	Timeout time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Pool.
func New(cfg Config) *Pool {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		targetURL:  cfg.TargetURL,
		serviceTag: cfg.ServiceTag,
		chunkSize:  chunkSize,
		timeout:    timeout,
		logger:     logger,
	}
	p.probe = p.probeOne
	return p
}

// Validate проверяет все прокси и возвращает результат для каждого.
//
// Длина результата равна длине входа, каждый прокси встречается ровно
// один раз. Порядок НЕ совпадает с порядком входа — результаты
// собираются из конкурентных чанков.
func (p *Pool) Validate(ctx context.Context, proxies []string) ([]domain.ProbeResult, error) {
	if len(proxies) == 0 {
		return nil, ErrNoProxies
	}

	select {
	case <-ctx.Done():
		return nil, ErrPoolAborted
	default:
	}

	chunks := Chunk(proxies, p.chunkSize)

	p.logger.Info("starting proxy validation",
		"proxies", len(proxies),
		"chunks", len(chunks),
		"chunk_size", p.chunkSize,
	)

	// По слоту на чанк — workers не разделяют изменяемое состояние.
	chunkResults := make([][]domain.ProbeResult, len(chunks))

	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		go func(idx int, chunk []string) {
			defer wg.Done()
			chunkResults[idx] = p.probeChunk(ctx, idx, chunk)
		}(i, chunks[i])
	}
	wg.Wait()

	results := make([]domain.ProbeResult, 0, len(proxies))
	for _, cr := range chunkResults {
		results = append(results, cr...)
	}

	var ok int
	for i := range results {
		if !results[i].HasFailures() {
			ok++
		}
	}
	p.logger.Info("proxy validation finished",
		"total", len(results),
		"success", ok,
		"fail", len(results)-ok,
	)

	return results, nil
}

// probeChunk проверяет один чанк. Panic внутри чанка не роняет
// остальные: его прокси классифицируются как fail.
func (p *Pool) probeChunk(ctx context.Context, idx int, chunk []string) (results []domain.ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("probe worker crashed, marking chunk as failed",
				"chunk", idx,
				"panic", r,
			)
			results = make([]domain.ProbeResult, 0, len(chunk))
			for _, proxy := range chunk {
				results = append(results, domain.ProbeResult{
					Proxy:   proxy,
					Success: []string{},
					Fail:    []string{p.serviceTag},
				})
			}
		}
	}()

	results = make([]domain.ProbeResult, 0, len(chunk))
	for _, proxy := range chunk {
		results = append(results, p.probe(ctx, proxy))
	}
	return results
}

// probeOne выполняет одну пробу: HTTP GET цели через прокси.
func (p *Pool) probeOne(ctx context.Context, proxy string) domain.ProbeResult {
	start := time.Now()
	ok := p.reachable(ctx, proxy)
	telemetry.ProbeDuration.Observe(time.Since(start).Seconds())

	result := domain.ProbeResult{
		Proxy:   proxy,
		Success: []string{},
		Fail:    []string{},
	}
	if ok {
		telemetry.ProbesTotal.WithLabelValues("success").Inc()
		result.Success = append(result.Success, p.serviceTag)
	} else {
		telemetry.ProbesTotal.WithLabelValues("fail").Inc()
		result.Fail = append(result.Fail, p.serviceTag)
	}

	p.logger.Debug("proxy probed",
		"proxy", proxy,
		"reachable", ok,
		"duration", time.Since(start),
	)
	return result
}

// reachable возвращает true строго при статусе 200 в пределах таймаута.
func (p *Pool) reachable(ctx context.Context, proxy string) bool {
	// Невалидный URL прокси — такой же fail, как и сетевая ошибка.
	if u, err := url.Parse(proxy); err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	client := resty.New().
		SetProxy(proxy).
		SetTimeout(p.timeout)

	resp, err := client.R().
		SetContext(ctx).
		Get(p.targetURL)
	if err != nil {
		return false
	}
	return resp.StatusCode() == 200
}

// Chunk разбивает список на куски по size элементов.
// Последний кусок может быть короче.
func Chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = defaultChunkSize
	}

	var chunks [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
