package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// Tool is an executable tool. Eino inferred tools satisfy it.
type Tool = tool.InvokableTool

// CallObserver is notified after every tool call with its final record.
type CallObserver interface {
	ObserveCall(ctx context.Context, rec CallRecord)
}

// ObserverFunc adapts a function to CallObserver.
type ObserverFunc func(ctx context.Context, rec CallRecord)

func (f ObserverFunc) ObserveCall(ctx context.Context, rec CallRecord) {
	f(ctx, rec)
}

// Registry manages tools by name, keeping registration order for listing.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	order     []string
	observers []CallObserver
	now       func() time.Time
}

// NewRegistry creates a new registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool), now: time.Now}
}

// Register adds a tool to registry
func (r *Registry) Register(t Tool) error {
	info, err := t.Info(context.Background())
	if err != nil {
		return err
	}
	if info == nil || info.Name == "" {
		return fmt.Errorf("tool info missing name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[info.Name]; exists {
		return fmt.Errorf("tool already registered: %s", info.Name)
	}
	r.tools[info.Name] = t
	r.order = append(r.order, info.Name)
	return nil
}

// Observe adds an observer for finished calls.
func (r *Registry) Observe(obs CallObserver) {
	if obs == nil {
		return
	}
	r.mu.Lock()
	r.observers = append(r.observers, obs)
	r.mu.Unlock()
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name])
	}
	return result
}

// Infos returns the declaration of every registered tool.
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	list := r.List()
	infos := make([]*schema.ToolInfo, 0, len(list))
	for _, t := range list {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Execute runs one tool call. The returned error is either ErrToolNotFound
// or a caller error from argument parsing; policy denials and backend
// failures arrive as result text.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	inv := &invocation{rec: CallRecord{
		RequestID: uuid.NewString(),
		Tool:      name,
		Started:   r.now(),
	}}
	ctx = withInvocation(ctx, inv)

	if argsJSON == "" {
		argsJSON = "{}"
	}
	result, err := t.InvokableRun(ctx, argsJSON)

	inv.update(func(rec *CallRecord) {
		rec.Duration = r.now().Sub(rec.Started)
		switch {
		case err != nil:
			rec.Outcome = OutcomeRejected
			rec.Category = CategoryValidation
			rec.Detail = err.Error()
		case rec.Outcome == "":
			rec.Outcome = OutcomeSucceeded
		}
	})
	rec := inv.snapshot()
	logCall(rec)
	r.notify(ctx, rec)

	if err != nil {
		return "", err
	}
	return result, nil
}

func (r *Registry) notify(ctx context.Context, rec CallRecord) {
	r.mu.RLock()
	observers := append([]CallObserver(nil), r.observers...)
	r.mu.RUnlock()
	for _, obs := range observers {
		obs.ObserveCall(ctx, rec)
	}
}

func logCall(rec CallRecord) {
	level := slog.LevelInfo
	if rec.Outcome != OutcomeSucceeded {
		level = slog.LevelWarn
	}
	attrs := []any{
		"request_id", rec.RequestID,
		"tool", rec.Tool,
		"outcome", string(rec.Outcome),
		"duration", rec.Duration,
	}
	if rec.Category != CategoryNone {
		attrs = append(attrs, "category", string(rec.Category))
	}
	if rec.Repo != "" {
		attrs = append(attrs, "repo", rec.Repo)
	}
	if rec.Branch != "" {
		attrs = append(attrs, "branch", rec.Branch)
	}
	slog.Log(context.Background(), level, "tool call finished", attrs...)
}
