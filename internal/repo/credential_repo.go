package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shaiso/Patrol/internal/domain"
)

// CredentialRepo — репозиторий для credentials и assignments.
type CredentialRepo struct {
	db *sql.DB
}

// NewCredentialRepo создаёт новый CredentialRepo.
func NewCredentialRepo(db *sql.DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// EnsureCredential возвращает id credential с данным секретом,
// создавая запись, если её ещё нет (insert-if-absent по secret_value).
func (r *CredentialRepo) EnsureCredential(ctx context.Context, secret string) (int64, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO credentials (secret_value) VALUES (?)
	`, secret)
	if err != nil {
		return 0, fmt.Errorf("insert credential: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		SELECT id FROM credentials WHERE secret_value = ?
	`, secret).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("select credential id: %w", err)
	}
	return id, nil
}

// GetBySecret возвращает credential по секрету.
func (r *CredentialRepo) GetBySecret(ctx context.Context, secret string) (*domain.Credential, error) {
	var cred domain.Credential
	err := r.db.QueryRowContext(ctx, `
		SELECT id, secret_value FROM credentials WHERE secret_value = ?
	`, secret).Scan(&cred.ID, &cred.SecretValue)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select credential: %w", err)
	}
	return &cred, nil
}

// EnsureAssignment привязывает прокси к credential.
//
// Прокси уникален среди всех привязок: повторная привязка того же
// прокси (к этому или другому credential) — no-op, первая запись
// сохраняется.
func (r *CredentialRepo) EnsureAssignment(ctx context.Context, credentialID int64, proxy string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO assignments (credential_id, proxy) VALUES (?, ?)
	`, credentialID, proxy)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// ListAssignedPairs возвращает все пары (credential, proxy) через
// join credentials × assignments. Каждая привязка — ровно один раз;
// порядок следования не гарантируется.
func (r *CredentialRepo) ListAssignedPairs(ctx context.Context) ([]domain.Pair, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.secret_value, a.proxy
		FROM assignments a
		JOIN credentials c ON c.id = a.credential_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list assigned pairs: %w", err)
	}
	defer rows.Close()

	var pairs []domain.Pair
	for rows.Next() {
		var p domain.Pair
		if err := rows.Scan(&p.CredentialID, &p.SecretValue, &p.Proxy); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}
