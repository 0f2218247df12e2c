// Package plugins hosts the tool registry behind the mcp_ passthrough
// actions. Tools are registered at startup and invoked by name with the
// step's parameter map as arguments.
package plugins

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tool is one invocable capability. Implementations must respect ctx.
type Tool func(ctx context.Context, args map[string]any) (any, error)

// DefaultInvokeTimeout bounds a single tool call.
const DefaultInvokeTimeout = 5 * time.Second

// Registry maps tool names to implementations. Registration normally happens
// during startup; invocation is concurrent afterwards.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	timeout time.Duration
	logger  *zap.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:   make(map[string]Tool),
		timeout: DefaultInvokeTimeout,
		logger:  logger,
	}
}

// Register adds a tool under the given name. Re-registering a name replaces
// the previous tool.
func (r *Registry) Register(name string, tool Tool) error {
	if name == "" {
		return fmt.Errorf("empty tool name")
	}
	if tool == nil {
		return fmt.Errorf("nil tool for %q", name)
	}
	r.mu.Lock()
	r.tools[name] = tool
	r.mu.Unlock()
	return nil
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Invoke runs the named tool under the per-call timeout.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	timeout := r.timeout
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := tool(ctx, args)
	r.logger.Debug("tool invoked",
		zap.String("tool", name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil))
	return out, err
}
