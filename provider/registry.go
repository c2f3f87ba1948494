package provider

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kbukum/llmx/errors"
)

// Registry maps case-insensitive provider names and their aliases to factories.
type Registry[T Provider, C any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T, C]
	aliases   map[string]string
	order     []string
}

// NewRegistry creates a new empty Registry.
func NewRegistry[T Provider, C any]() *Registry[T, C] {
	return &Registry[T, C]{
		factories: make(map[string]Factory[T, C]),
		aliases:   make(map[string]string),
	}
}

// RegisterFactory registers a factory under a canonical name.
func (r *Registry[T, C]) RegisterFactory(name string, factory Factory[T, C]) {
	key := normalize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[key]; !exists {
		r.order = append(r.order, key)
	}
	r.factories[key] = factory
}

// RegisterAlias makes alias resolve to the canonical name target.
// target must already be registered.
func (r *Registry[T, C]) RegisterAlias(alias, target string) error {
	a, t := normalize(alias), normalize(target)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[t]; !ok {
		return fmt.Errorf("provider: alias %q targets unregistered provider %q", alias, target)
	}
	if _, ok := r.factories[a]; ok {
		return fmt.Errorf("provider: alias %q shadows a registered provider", alias)
	}
	if _, exists := r.aliases[a]; !exists {
		r.order = append(r.order, a)
	}
	r.aliases[a] = t
	return nil
}

// Resolve returns the canonical name for name or an alias of it.
func (r *Registry[T, C]) Resolve(name string) (string, error) {
	key := normalize(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.factories[key]; ok {
		return key, nil
	}
	if target, ok := r.aliases[key]; ok {
		return target, nil
	}
	return "", errors.Configuration(fmt.Sprintf(
		"Provider '%s' not supported. Available providers: %s",
		key, strings.Join(r.order, ", "),
	))
}

// Create instantiates a provider using the factory registered for name.
func (r *Registry[T, C]) Create(name string, cfg C) (T, error) {
	canonical, err := r.Resolve(name)
	if err != nil {
		var zero T
		return zero, err
	}
	r.mu.RLock()
	factory := r.factories[canonical]
	r.mu.RUnlock()
	return factory(cfg)
}

// Names returns every canonical name and alias in registration order.
func (r *Registry[T, C]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
