// Package actions provides the action executors the engine dispatches step
// payloads to, and the registry that maps action types to executors.
package actions

import (
	"context"
	"fmt"
	"sync"

	"github.com/harrison/pilot/internal/models"
)

// Result is the outcome contract every executor returns. A failed dispatch
// is a Result with Success=false, not an error: executor errors are data the
// engine's fallback protocol acts on.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Executor performs one action type.
type Executor interface {
	Execute(ctx context.Context, action models.Action) Result
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, action models.Action) Result

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, action models.Action) Result {
	return f(ctx, action)
}

// Registry maps action types to executors and dispatches actions to them.
// Registration is typically done once at startup; Dispatch is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	executors map[models.ActionType]Executor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[models.ActionType]Executor)}
}

// Register binds an executor to an action type, replacing any previous one.
func (r *Registry) Register(t models.ActionType, e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[t] = e
}

// Dispatch routes the action to its executor. An unregistered action type is
// a failed result, not a panic, so a malformed plan degrades into the normal
// fallback path.
func (r *Registry) Dispatch(ctx context.Context, action models.Action) Result {
	r.mu.RLock()
	executor, ok := r.executors[action.Type]
	r.mu.RUnlock()

	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("no executor registered for action type %q", action.Type)}
	}
	return executor.Execute(ctx, action)
}

// NewDefaultRegistry wires the built-in executors for a workspace. The
// call-model executor is only registered when a model is provided; the
// assistance executor is only registered when an assist function is provided.
func NewDefaultRegistry(workspaceRoot string, opts ...RegistryOption) *Registry {
	r := NewRegistry()

	reader := &FileReader{Root: workspaceRoot}
	writer := &FileWriter{Root: workspaceRoot}
	r.Register(models.ActionReadFile, reader)
	r.Register(models.ActionWriteFile, writer)
	r.Register(models.ActionCreateFile, writer)
	r.Register(models.ActionSearchCodebase, &Searcher{Root: workspaceRoot})
	r.Register(models.ActionRunCommand, &CommandRunner{Dir: workspaceRoot})

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegistryOption customizes NewDefaultRegistry.
type RegistryOption func(*Registry)

// WithModelExecutor registers the call-model executor.
func WithModelExecutor(e Executor) RegistryOption {
	return func(r *Registry) { r.Register(models.ActionCallModel, e) }
}

// WithAssistExecutor registers the request-assistance executor.
func WithAssistExecutor(e Executor) RegistryOption {
	return func(r *Registry) { r.Register(models.ActionRequestAssist, e) }
}
