package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MEKXH/gitmind/internal/tools"
)

const (
	auditFileMode = 0644
	auditDirMode  = 0755
)

// Event is one audit record written as a single JSON line.
type Event struct {
	Time       time.Time `json:"time"`
	RequestID  string    `json:"request_id,omitempty"`
	Tool       string    `json:"tool"`
	Operation  string    `json:"operation,omitempty"`
	Repo       string    `json:"repo,omitempty"`
	Branch     string    `json:"branch,omitempty"`
	Outcome    string    `json:"outcome"`
	Category   string    `json:"category,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

// EventFromCall converts a finished tool call into an audit event.
func EventFromCall(rec tools.CallRecord) Event {
	ts := rec.Started
	if ts.IsZero() {
		ts = time.Now()
	}
	return Event{
		Time:       ts.UTC(),
		RequestID:  rec.RequestID,
		Tool:       rec.Tool,
		Operation:  rec.Operation,
		Repo:       rec.Repo,
		Branch:     rec.Branch,
		Outcome:    string(rec.Outcome),
		Category:   string(rec.Category),
		Detail:     rec.Detail,
		DurationMs: rec.Duration.Milliseconds(),
	}
}

// Writer appends audit events to a JSONL file.
type Writer struct {
	path string
	mu   sync.Mutex
}

// NewWriter creates an append-only audit writer for path. The parent
// directory is created on first append.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the audit file location.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one event as one JSONL line.
func (w *Writer) Append(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), auditDirMode); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, auditFileMode)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	encoded, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	encoded = append(encoded, '\n')

	if _, err := file.Write(encoded); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync audit file: %w", err)
	}
	return nil
}

// ObserveCall records every finished tool call. Write failures are logged
// and never affect the call result.
func (w *Writer) ObserveCall(ctx context.Context, rec tools.CallRecord) {
	if err := w.Append(EventFromCall(rec)); err != nil {
		slog.Warn("audit append failed", "request_id", rec.RequestID, "error", err)
	}
}
