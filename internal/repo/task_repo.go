package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/Patrol/internal/domain"
)

// TaskRepo — репозиторий для tasks.
//
// Уникальность ключа (credential_id, proxy, service) обеспечивается
// check-then-insert в Ensure: предусловие системы — один логический
// писатель, конкурентных Orchestrator-процессов против одной базы нет.
type TaskRepo struct {
	db *sql.DB
}

// NewTaskRepo создаёт новый TaskRepo.
func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// Ensure создаёт pending task для ключа, если его ещё нет.
//
// Идемпотентна: повторный вызов для существующего ключа — no-op.
// Ошибка хранилища для вызывающей стороны означает "состояние
// неизвестно", а не подтверждение записи.
func (r *TaskRepo) Ensure(ctx context.Context, credentialID int64, proxy, service string) error {
	var exists int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM tasks
		WHERE credential_id = ? AND proxy = ? AND service = ?
	`, credentialID, proxy, service).Scan(&exists)

	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check task: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tasks (credential_id, proxy, service, state, retry_count, point, last_updated)
		VALUES (?, ?, ?, ?, 0, 0, ?)
	`, credentialID, proxy, service, domain.TaskStatePending, time.Now())
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetState возвращает состояние task по ключу.
// Второе значение false — строки для ключа нет.
func (r *TaskRepo) GetState(ctx context.Context, credentialID int64, proxy, service string) (domain.TaskState, bool, error) {
	var state string
	err := r.db.QueryRowContext(ctx, `
		SELECT state FROM tasks
		WHERE credential_id = ? AND proxy = ? AND service = ?
	`, credentialID, proxy, service).Scan(&state)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get task state: %w", err)
	}
	return domain.ParseTaskState(state), true, nil
}

// SetState безусловно перезаписывает state, point и last_updated.
// Last-writer-wins; optimistic concurrency не нужен при одном писателе.
func (r *TaskRepo) SetState(ctx context.Context, credentialID int64, proxy, service string, state domain.TaskState, point int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET state = ?, point = ?, last_updated = ?
		WHERE credential_id = ? AND proxy = ? AND service = ?
	`, state, point, time.Now(), credentialID, proxy, service)
	if err != nil {
		return fmt.Errorf("set task state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRetryCount записывает, сколько попыток login потратил запуск.
// Значение информационное: бюджет попыток при следующем запуске
// начинается заново, эта колонка при старте не читается.
func (r *TaskRepo) SetRetryCount(ctx context.Context, credentialID int64, proxy, service string, retryCount int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET retry_count = ?
		WHERE credential_id = ? AND proxy = ? AND service = ?
	`, retryCount, credentialID, proxy, service)
	if err != nil {
		return fmt.Errorf("set retry count: %w", err)
	}
	return nil
}

// Get возвращает task целиком по ключу.
func (r *TaskRepo) Get(ctx context.Context, credentialID int64, proxy, service string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, credential_id, proxy, service, state, retry_count, point, last_updated
		FROM tasks
		WHERE credential_id = ? AND proxy = ? AND service = ?
	`, credentialID, proxy, service)

	var task domain.Task
	var state string
	err := row.Scan(
		&task.ID,
		&task.CredentialID,
		&task.Proxy,
		&task.Service,
		&state,
		&task.RetryCount,
		&task.Point,
		&task.LastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task.State = domain.ParseTaskState(state)
	return &task, nil
}

// ListByService возвращает все tasks сервиса (для status-команды CLI).
func (r *TaskRepo) ListByService(ctx context.Context, service string) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, credential_id, proxy, service, state, retry_count, point, last_updated
		FROM tasks
		WHERE service = ?
		ORDER BY id ASC
	`, service)
	if err != nil {
		return nil, fmt.Errorf("list tasks by service: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var task domain.Task
		var state string
		err := rows.Scan(
			&task.ID,
			&task.CredentialID,
			&task.Proxy,
			&task.Service,
			&state,
			&task.RetryCount,
			&task.Point,
			&task.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		task.State = domain.ParseTaskState(state)
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CountByState возвращает количество tasks в каждом состоянии.
func (r *TaskRepo) CountByState(ctx context.Context) (map[domain.TaskState]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT state, COUNT(*) FROM tasks GROUP BY state
	`)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TaskState]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.ParseTaskState(state)] = count
	}
	return counts, rows.Err()
}
