package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"
)

// FailureRecord — запись о терминальном отказе пары.
type FailureRecord struct {
	// CredentialSecret — секрет credential.
	CredentialSecret string `json:"credential_secret"`

	// Proxy — прокси пары.
	Proxy string `json:"proxy"`

	// Service — сервис.
	Service string `json:"service"`

	// Timestamp — момент фиксации отказа.
	Timestamp time.Time `json:"timestamp"`
}

// FailureLog — журнал отказов для офлайн-разбора.
//
// Формат — JSON-массив, переписываемый целиком на каждое добавление
// (read-modify-write, не настоящий append-log). Конкурентные
// добавления из разных пар сериализуются мьютексом.
type FailureLog struct {
	mu   sync.Mutex
	path string
}

// NewFailureLog создаёт журнал по указанному пути.
func NewFailureLog(path string) *FailureLog {
	return &FailureLog{path: path}
}

// Append добавляет запись, переписывая файл целиком.
// Timestamp проставляется здесь, если не задан.
func (l *FailureLog) Append(rec FailureRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	records, err := l.readAll()
	if err != nil {
		return err
	}
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal failure records: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write failure log: %w", err)
	}
	return nil
}

// Records возвращает все записи журнала.
func (l *FailureLog) Records() ([]FailureRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAll()
}

// readAll читает журнал; отсутствующий файл — пустой журнал.
func (l *FailureLog) readAll() ([]FailureRecord, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read failure log: %w", err)
	}

	var records []FailureRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse failure log: %w", err)
	}
	return records, nil
}
