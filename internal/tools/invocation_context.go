package tools

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MEKXH/gitmind/internal/vcs"
)

// Outcome is the terminal state of one tool call.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeDenied    Outcome = "denied"
	OutcomeFailed    Outcome = "failed"
	// OutcomeRejected marks calls whose arguments failed validation.
	OutcomeRejected Outcome = "rejected"
)

// Category classifies why a call did not succeed.
type Category string

const (
	CategoryNone       Category = ""
	CategoryValidation Category = "validation"
	CategoryPolicy     Category = "policy"
	CategoryRepository Category = "repository"
	CategoryState      Category = "state"
	CategoryBackend    Category = "backend"
	CategoryTimeout    Category = "timeout"
)

// CallRecord describes one finished tool call.
type CallRecord struct {
	RequestID string
	Tool      string
	Operation string
	Repo      string
	Branch    string
	Outcome   Outcome
	Category  Category
	// Detail is the denial reason or normalized error text.
	Detail   string
	Started  time.Time
	Duration time.Duration
}

type invocationContextKey struct{}

// invocation is the mutable record a handler fills in while it runs.
type invocation struct {
	mu  sync.Mutex
	rec CallRecord
}

func withInvocation(ctx context.Context, inv *invocation) context.Context {
	return context.WithValue(ctx, invocationContextKey{}, inv)
}

func invocationFrom(ctx context.Context) *invocation {
	inv, _ := ctx.Value(invocationContextKey{}).(*invocation)
	return inv
}

// RequestIDFromContext returns the request ID of the running tool call.
func RequestIDFromContext(ctx context.Context) string {
	inv := invocationFrom(ctx)
	if inv == nil {
		return ""
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.rec.RequestID
}

func (inv *invocation) update(fn func(rec *CallRecord)) {
	if inv == nil {
		return
	}
	inv.mu.Lock()
	fn(&inv.rec)
	inv.mu.Unlock()
}

func (inv *invocation) snapshot() CallRecord {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.rec
}

func noteOperation(ctx context.Context, operation string) {
	invocationFrom(ctx).update(func(rec *CallRecord) { rec.Operation = operation })
}

func noteRepo(ctx context.Context, root string) {
	invocationFrom(ctx).update(func(rec *CallRecord) { rec.Repo = root })
}

func noteBranch(ctx context.Context, branch string) {
	invocationFrom(ctx).update(func(rec *CallRecord) { rec.Branch = branch })
}

// succeed records a successful call and returns its summary text.
func succeed(ctx context.Context, text string) string {
	invocationFrom(ctx).update(func(rec *CallRecord) {
		rec.Outcome = OutcomeSucceeded
		rec.Category = CategoryNone
	})
	return text
}

// deny records a guard refusal. The reason is returned verbatim.
func deny(ctx context.Context, category Category, reason string) string {
	invocationFrom(ctx).update(func(rec *CallRecord) {
		rec.Outcome = OutcomeDenied
		rec.Category = category
		rec.Detail = reason
	})
	return reason
}

// fail records a repository or backend failure and renders it with the
// "Error: " marker.
func fail(ctx context.Context, err error) string {
	category := CategoryBackend
	switch {
	case errors.Is(err, vcs.ErrTimeout):
		category = CategoryTimeout
	case errors.Is(err, vcs.ErrNotRepository):
		category = CategoryRepository
	}
	return "Error: " + failText(ctx, category, vcs.FormatError(err))
}

// failText records a failure whose text is already rendered.
func failText(ctx context.Context, category Category, msg string) string {
	invocationFrom(ctx).update(func(rec *CallRecord) {
		rec.Outcome = OutcomeFailed
		rec.Category = category
		rec.Detail = msg
	})
	return msg
}
