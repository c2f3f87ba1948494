package provider

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
)

// Instances caches one live provider per name. Creation runs under the
// lock, so create must not perform network I/O.
type Instances[T Provider] struct {
	mu    sync.Mutex
	items map[string]T
}

// NewInstances creates an empty instance cache.
func NewInstances[T Provider]() *Instances[T] {
	return &Instances[T]{items: make(map[string]T)}
}

// GetOrCreate returns the cached instance for name, creating it on first use.
// A failed creation is not cached.
func (c *Instances[T]) GetOrCreate(name string, create func() (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inst, ok := c.items[name]; ok {
		return inst, nil
	}
	inst, err := create()
	if err != nil {
		var zero T
		return zero, err
	}
	c.items[name] = inst
	return inst, nil
}

// Get returns a cached instance by name.
func (c *Instances[T]) Get(name string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.items[name]
	return inst, ok
}

// Names returns the sorted names of cached instances.
func (c *Instances[T]) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.items))
	for name := range c.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CloseAll closes every cached instance that implements Closeable and empties
// the cache. All close errors are joined.
func (c *Instances[T]) CloseAll(ctx context.Context) error {
	c.mu.Lock()
	items := c.items
	c.items = make(map[string]T)
	c.mu.Unlock()

	var errs []error
	for _, inst := range items {
		if closer, ok := any(inst).(Closeable); ok {
			if err := closer.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return stderrors.Join(errs...)
}
