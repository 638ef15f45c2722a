package sink

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory opens a sink.
type Factory func(ctx context.Context, opts Options) (Sink, error)

type entry struct {
	description string
	factory     Factory
}

var (
	registry = make(map[string]entry)
	mu       sync.RWMutex
)

// Register adds a sink to the registry.
func Register(name, description string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = entry{description: description, factory: factory}
}

// Open opens the named sink.
func Open(ctx context.Context, name string, opts Options) (Sink, error) {
	mu.RLock()
	e, ok := registry[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown sink: %s", name)
	}
	return e.factory(ctx, opts)
}

// Describe returns the description of a registered sink.
func Describe(name string) (string, error) {
	mu.RLock()
	defer mu.RUnlock()

	e, ok := registry[name]
	if !ok {
		return "", fmt.Errorf("unknown sink: %s", name)
	}
	return e.description, nil
}

// List returns all registered sink names in sorted order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
