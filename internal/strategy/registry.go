package strategy

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory builds a policy from its configuration.
type Factory func(cfg Config, logger *slog.Logger) Policy

// Registry maps policy names to factories. It is safe for concurrent use.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry returns a Registry with every built-in policy registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("momentum", func(cfg Config, logger *slog.Logger) Policy { return NewMomentum(cfg, logger) })
	r.Register("threshold", func(cfg Config, logger *slog.Logger) Policy { return NewThreshold(cfg, logger) })
	r.Register("random", func(cfg Config, _ *slog.Logger) Policy { return NewRandom(cfg) })
	r.Register("noop", func(Config, *slog.Logger) Policy { return Noop{} })
	return r
}

// Register adds a factory under the given name, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Build constructs the policy registered under cfg.Name.
func (r *Registry) Build(cfg Config, logger *slog.Logger) (Policy, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategy %q: not registered", cfg.Name)
	}
	return f(cfg, logger), nil
}

// List returns the names of all registered policies in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the built-in policy named by cfg.Name. Unknown names are a
// configuration error.
func New(cfg Config, logger *slog.Logger) (Policy, error) {
	return DefaultRegistry().Build(cfg, logger)
}
