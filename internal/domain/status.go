package domain

// TaskState — состояние выполнения task.
//
// Жизненный цикл:
//
//	PENDING → SUCCESS
//	        ↘ FAILED
//
// SUCCESS и FAILED — терминальные состояния. Task в терминальном
// состоянии никогда не обрабатывается повторно: при следующем
// запуске Orchestrator пропускает его целиком.
type TaskState string

const (
	// TaskStatePending — task создан, пара ещё не обработана
	// (или предыдущая попытка упала с инфраструктурной ошибкой).
	TaskStatePending TaskState = "PENDING"

	// TaskStateSuccess — login и check прошли успешно.
	TaskStateSuccess TaskState = "SUCCESS"

	// TaskStateFailed — login не удался за отведённые попытки,
	// либо check явно вернул false.
	TaskStateFailed TaskState = "FAILED"
)

// IsTerminal возвращает true, если состояние финальное.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateSuccess, TaskStateFailed:
		return true
	default:
		return false
	}
}

// ParseTaskState парсит строку в TaskState.
// Неизвестные значения трактуются как PENDING.
func ParseTaskState(s string) TaskState {
	switch s {
	case "SUCCESS":
		return TaskStateSuccess
	case "FAILED":
		return TaskStateFailed
	default:
		return TaskStatePending
	}
}
