package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shaiso/Patrol/internal/domain"
)

// ProbeRepo — репозиторий для proxy_probe_results.
type ProbeRepo struct {
	db *sql.DB
}

// NewProbeRepo создаёт новый ProbeRepo.
func NewProbeRepo(db *sql.DB) *ProbeRepo {
	return &ProbeRepo{db: db}
}

// Replace перезаписывает таблицу результатов целиком.
//
// Таблица очищается и заполняется заново в одной транзакции:
// либо записан весь новый набор, либо остаётся старый. Вызывается
// только после того, как Validator Pool собрал полный результат.
func (r *ProbeRepo) Replace(ctx context.Context, results []domain.ProbeResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM proxy_probe_results`); err != nil {
		return fmt.Errorf("truncate probe results: %w", err)
	}

	for i := range results {
		res := &results[i]

		successJSON, err := json.Marshal(res.Success)
		if err != nil {
			return fmt.Errorf("marshal success tags: %w", err)
		}
		failJSON, err := json.Marshal(res.Fail)
		if err != nil {
			return fmt.Errorf("marshal fail tags: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO proxy_probe_results (proxy, success, fail) VALUES (?, ?, ?)
		`, res.Proxy, string(successJSON), string(failJSON))
		if err != nil {
			return fmt.Errorf("insert probe result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit probe results: %w", err)
	}
	return nil
}

// List возвращает все сохранённые результаты проверки.
func (r *ProbeRepo) List(ctx context.Context) ([]domain.ProbeResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT proxy, success, fail FROM proxy_probe_results
	`)
	if err != nil {
		return nil, fmt.Errorf("list probe results: %w", err)
	}
	defer rows.Close()

	var results []domain.ProbeResult
	for rows.Next() {
		res, err := scanProbeResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// Get возвращает результат проверки одного прокси.
func (r *ProbeRepo) Get(ctx context.Context, proxy string) (*domain.ProbeResult, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT proxy, success, fail FROM proxy_probe_results WHERE proxy = ?
	`, proxy)

	var res domain.ProbeResult
	var successJSON, failJSON string
	err := row.Scan(&res.Proxy, &successJSON, &failJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan probe result: %w", err)
	}
	if err := unmarshalTags(&res, successJSON, failJSON); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Helpers ---

func scanProbeResult(rows *sql.Rows) (*domain.ProbeResult, error) {
	var res domain.ProbeResult
	var successJSON, failJSON string

	if err := rows.Scan(&res.Proxy, &successJSON, &failJSON); err != nil {
		return nil, fmt.Errorf("scan probe result: %w", err)
	}
	if err := unmarshalTags(&res, successJSON, failJSON); err != nil {
		return nil, err
	}
	return &res, nil
}

func unmarshalTags(res *domain.ProbeResult, successJSON, failJSON string) error {
	if err := json.Unmarshal([]byte(successJSON), &res.Success); err != nil {
		return fmt.Errorf("unmarshal success tags: %w", err)
	}
	if err := json.Unmarshal([]byte(failJSON), &res.Fail); err != nil {
		return fmt.Errorf("unmarshal fail tags: %w", err)
	}
	return nil
}
