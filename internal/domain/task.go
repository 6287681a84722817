package domain

import "time"

// Task — персистентная запись о прогрессе одной пары для одного сервиса.
//
// Task создаётся Orchestrator'ом лениво — при первой встрече пары
// (credential, proxy) для данного сервиса. Уникален по ключу
// (CredentialID, Proxy, Service). Мутируется только Orchestrator'ом
// и никогда не удаляется: терминальное состояние — постоянная
// отметка "не обрабатывать" для последующих запусков.
type Task struct {
	// ID — идентификатор, назначается хранилищем.
	ID int64 `json:"id"`

	// CredentialID — ссылка на credential.
	CredentialID int64 `json:"credential_id"`

	// Proxy — прокси, через который обрабатывается пара.
	Proxy string `json:"proxy"`

	// Service — имя внешнего сервиса (ключ в session.Registry).
	Service string `json:"service"`

	// State — текущее состояние task.
	State TaskState `json:"state"`

	// RetryCount — сколько попыток login потратил последний запуск.
	// Информационное поле: бюджет попыток живёт в памяти процесса
	// и НЕ восстанавливается из этого значения при рестарте.
	RetryCount int `json:"retry_count"`

	// Point — числовой результат check. Осмысленен только при
	// State == SUCCESS, иначе 0.
	Point int `json:"point"`

	// LastUpdated — время последнего изменения состояния.
	LastUpdated time.Time `json:"last_updated"`
}

// IsFinished возвращает true, если task в терминальном состоянии.
func (t *Task) IsFinished() bool {
	return t.State.IsTerminal()
}

// MarkSuccess переводит task в SUCCESS с результатом check.
func (t *Task) MarkSuccess(point int) {
	t.State = TaskStateSuccess
	t.Point = point
	t.LastUpdated = time.Now()
}

// MarkFailed переводит task в FAILED. Point сбрасывается в 0.
func (t *Task) MarkFailed() {
	t.State = TaskStateFailed
	t.Point = 0
	t.LastUpdated = time.Now()
}
