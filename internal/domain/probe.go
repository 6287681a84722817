package domain

// ProbeResult — результат проверки одного прокси Validator Pool'ом.
//
// Success и Fail — списки тегов сервисов, для которых проба через
// этот прокси прошла или не прошла. В текущей конфигурации тег один,
// но модель допускает несколько целей проверки.
//
// Таблица proxy_probe_results перезаписывается целиком на каждый
// полный прогон валидации — результаты прошлых прогонов для прокси,
// выпавших из списка кандидатов, не сохраняются.
type ProbeResult struct {
	// Proxy — проверенный прокси (уникальный ключ).
	Proxy string `json:"proxy"`

	// Success — теги сервисов, доступных через прокси.
	Success []string `json:"success"`

	// Fail — теги сервисов, недоступных через прокси.
	Fail []string `json:"fail"`
}

// HasFailures возвращает true, если хотя бы одна проба не прошла.
// Такие прокси попадают в отчёт для оператора (но из назначения
// не исключаются — это решение вызывающей стороны).
func (r *ProbeResult) HasFailures() bool {
	return len(r.Fail) > 0
}
