// Package audit writes the on-disk audit trail of submitted transactions.
// Records are JSON lines in daily files; writes are synced so a crash cannot
// lose an acknowledged submission record.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one audit entry.
type Record struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Operation      string    `json:"operation"`
	VaultAccountID string    `json:"vaultAccountId"`
	Chain          string    `json:"chain"`
	Address        string    `json:"address"`
	TxHash         string    `json:"txHash"`
	Detail         string    `json:"detail,omitempty"`
}

// Writer appends records to daily JSONL files under a directory.
type Writer struct {
	mu  sync.Mutex
	dir string

	file *os.File
	day  string
}

// NewWriter creates a Writer, making the directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("audit: directory required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Write appends a record, assigning its id and timestamp.
func (w *Writer) Write(rec Record) (string, error) {
	rec.ID = uuid.New().String()
	rec.Timestamp = time.Now().UTC()

	line, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("audit: marshal record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateLocked(rec.Timestamp); err != nil {
		return "", err
	}
	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return "", fmt.Errorf("audit: write record: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return "", fmt.Errorf("audit: sync: %w", err)
	}
	return rec.ID, nil
}

// rotateLocked opens the file for the record's day. Caller holds the lock.
func (w *Writer) rotateLocked(ts time.Time) error {
	day := ts.Format("2006-01-02")
	if w.file != nil && w.day == day {
		return nil
	}
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	path := filepath.Join(w.dir, "audit-"+day+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", path, err)
	}
	w.file = f
	w.day = day
	return nil
}

// Close closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
