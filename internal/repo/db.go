package repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Open открывает embedded SQLite базу и инициализирует схему.
//
// Если path пустой, используется переменная окружения PATROL_DB
// (default: "patrol.db"). База работает в режиме одного логического
// писателя: два Orchestrator-процесса против одного файла —
// нарушение предусловия, не защищённое блокировками.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = os.Getenv("PATROL_DB")
	}
	if path == "" {
		path = "patrol.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// initSchema создаёт таблицы, если их ещё нет.
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		secret_value TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS assignments (
		credential_id INTEGER NOT NULL REFERENCES credentials(id),
		proxy         TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS proxy_probe_results (
		proxy   TEXT PRIMARY KEY,
		success TEXT NOT NULL,
		fail    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		credential_id INTEGER NOT NULL,
		proxy         TEXT NOT NULL,
		service       TEXT NOT NULL,
		state         TEXT NOT NULL CHECK (state IN ('PENDING','SUCCESS','FAILED')),
		retry_count   INTEGER NOT NULL DEFAULT 0,
		point         INTEGER NOT NULL DEFAULT 0,
		last_updated  TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_key
		ON tasks (credential_id, proxy, service);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}
