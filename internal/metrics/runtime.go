package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MEKXH/gitmind/internal/tools"
)

const runtimeMetricsFileName = "runtime_metrics.json"

var latencyBucketUpperBoundsMs = []int64{
	10, 25, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000,
}

// RuntimeSnapshot contains aggregated tool call metrics.
type RuntimeSnapshot struct {
	UpdatedAt time.Time               `json:"updated_at"`
	Tool      ToolStats               `json:"tool"`
	PerTool   map[string]OutcomeCount `json:"per_tool,omitempty"`
}

// OutcomeCount tallies call outcomes.
type OutcomeCount struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Denied    int64 `json:"denied"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
}

func (c *OutcomeCount) add(outcome tools.Outcome) {
	c.Total++
	switch outcome {
	case tools.OutcomeSucceeded:
		c.Succeeded++
	case tools.OutcomeDenied:
		c.Denied++
	case tools.OutcomeFailed:
		c.Failed++
	case tools.OutcomeRejected:
		c.Rejected++
	}
}

// ToolStats tracks tool execution metrics across all tools.
type ToolStats struct {
	OutcomeCount
	Timeouts          int64 `json:"timeouts"`
	TotalLatencyMs    int64 `json:"total_latency_ms"`
	MaxLatencyMs      int64 `json:"max_latency_ms"`
	LastLatencyMs     int64 `json:"last_latency_ms"`
	P95ProxyLatencyMs int64 `json:"p95_proxy_latency_ms"`
}

// FailureRatio returns failed/total in [0,1].
func (t ToolStats) FailureRatio() float64 {
	if t.Total <= 0 {
		return 0
	}
	return float64(t.Failed) / float64(t.Total)
}

// DenialRatio returns denied/total in [0,1].
func (t ToolStats) DenialRatio() float64 {
	if t.Total <= 0 {
		return 0
	}
	return float64(t.Denied) / float64(t.Total)
}

// TimeoutRatio returns timeouts/total in [0,1].
func (t ToolStats) TimeoutRatio() float64 {
	if t.Total <= 0 {
		return 0
	}
	return float64(t.Timeouts) / float64(t.Total)
}

// AvgLatencyMs returns average latency in milliseconds.
func (t ToolStats) AvgLatencyMs() float64 {
	if t.Total <= 0 {
		return 0
	}
	return float64(t.TotalLatencyMs) / float64(t.Total)
}

// HasData reports whether any runtime metrics were recorded.
func (s RuntimeSnapshot) HasData() bool {
	return s.Tool.Total > 0
}

// RuntimeMetrics records and persists runtime metrics.
type RuntimeMetrics struct {
	path string

	mu      sync.Mutex
	snap    RuntimeSnapshot
	buckets []int64
}

// NewRuntimeMetrics creates a recorder persisting to
// <stateDir>/runtime_metrics.json. An empty stateDir keeps metrics in
// memory only.
func NewRuntimeMetrics(stateDir string) *RuntimeMetrics {
	return &RuntimeMetrics{
		path:    runtimeMetricsPath(stateDir),
		buckets: make([]int64, len(latencyBucketUpperBoundsMs)+1),
	}
}

// Snapshot returns the latest in-memory snapshot.
func (m *RuntimeMetrics) Snapshot() RuntimeSnapshot {
	if m == nil {
		return RuntimeSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.clone()
}

// RecordCall updates metrics with one finished call and persists the
// snapshot.
func (m *RuntimeMetrics) RecordCall(rec tools.CallRecord) (RuntimeSnapshot, error) {
	if m == nil {
		return RuntimeSnapshot{}, nil
	}

	latencyMs := rec.Duration.Milliseconds()
	if latencyMs < 0 {
		latencyMs = 0
	}

	m.mu.Lock()
	m.snap.UpdatedAt = time.Now().UTC()
	m.snap.Tool.add(rec.Outcome)
	m.snap.Tool.TotalLatencyMs += latencyMs
	m.snap.Tool.LastLatencyMs = latencyMs
	if latencyMs > m.snap.Tool.MaxLatencyMs {
		m.snap.Tool.MaxLatencyMs = latencyMs
	}
	if rec.Category == tools.CategoryTimeout {
		m.snap.Tool.Timeouts++
	}
	if m.snap.PerTool == nil {
		m.snap.PerTool = make(map[string]OutcomeCount)
	}
	perTool := m.snap.PerTool[rec.Tool]
	perTool.add(rec.Outcome)
	m.snap.PerTool[rec.Tool] = perTool

	m.buckets[latencyBucketIndex(latencyMs)]++
	m.snap.Tool.P95ProxyLatencyMs = p95ProxyFromBuckets(m.buckets, m.snap.Tool.Total)

	snapshot := m.snap.clone()
	m.mu.Unlock()

	return snapshot, persistRuntimeSnapshot(m.path, snapshot)
}

// ObserveCall records rec; persistence failures are logged.
func (m *RuntimeMetrics) ObserveCall(ctx context.Context, rec tools.CallRecord) {
	if _, err := m.RecordCall(rec); err != nil {
		slog.Warn("persist runtime metrics failed", "error", err)
	}
}

func (s RuntimeSnapshot) clone() RuntimeSnapshot {
	out := s
	if s.PerTool != nil {
		out.PerTool = make(map[string]OutcomeCount, len(s.PerTool))
		for name, count := range s.PerTool {
			out.PerTool[name] = count
		}
	}
	return out
}

// ReadRuntimeSnapshot reads the persisted snapshot from stateDir.
// If no file exists yet, it returns a zero-value snapshot and nil error.
func ReadRuntimeSnapshot(stateDir string) (RuntimeSnapshot, error) {
	path := runtimeMetricsPath(stateDir)
	if path == "" {
		return RuntimeSnapshot{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RuntimeSnapshot{}, nil
		}
		return RuntimeSnapshot{}, fmt.Errorf("read runtime metrics: %w", err)
	}

	var snap RuntimeSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return RuntimeSnapshot{}, fmt.Errorf("decode runtime metrics: %w", err)
	}
	return snap, nil
}

func runtimeMetricsPath(stateDir string) string {
	if strings.TrimSpace(stateDir) == "" {
		return ""
	}
	return filepath.Join(stateDir, runtimeMetricsFileName)
}

func persistRuntimeSnapshot(path string, snapshot RuntimeSnapshot) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create runtime metrics dir: %w", err)
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode runtime metrics: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, payload, 0o644); err != nil {
		return fmt.Errorf("write runtime metrics temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename runtime metrics file: %w", err)
	}
	return nil
}

func latencyBucketIndex(latencyMs int64) int {
	for i, upper := range latencyBucketUpperBoundsMs {
		if latencyMs <= upper {
			return i
		}
	}
	return len(latencyBucketUpperBoundsMs)
}

func p95ProxyFromBuckets(buckets []int64, total int64) int64 {
	if total <= 0 {
		return 0
	}
	target := int64(float64(total) * 0.95)
	if target <= 0 {
		target = 1
	}

	var cumulative int64
	for i, count := range buckets {
		cumulative += count
		if cumulative < target {
			continue
		}
		if i >= len(latencyBucketUpperBoundsMs) {
			return latencyBucketUpperBoundsMs[len(latencyBucketUpperBoundsMs)-1]
		}
		return latencyBucketUpperBoundsMs[i]
	}
	return latencyBucketUpperBoundsMs[len(latencyBucketUpperBoundsMs)-1]
}
