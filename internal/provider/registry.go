// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package provider

import (
	"sync"

	tethererr "github.com/tether-dev/tether/pkg/errors"
)

// Registry manages provider registration and lookup. Registration order is
// preserved: when no default provider is configured the orchestrator falls
// back to the first registered provider, and that fallback must be
// deterministic across runs.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry. Re-registering a name replaces
// the provider but keeps its original position in the order.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, tethererr.New(
			tethererr.CodeProviderNotFound,
			"provider not found: "+name,
			tethererr.FieldProvider(name),
		)
	}
	return p, nil
}

// First returns the first registered provider and its name.
func (r *Registry) First() (string, Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return "", nil, tethererr.New(
			tethererr.CodeProviderNoneRegistered,
			"no providers registered",
		)
	}
	name := r.order[0]
	return name, r.providers[name], nil
}

// Names returns provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Close shuts down all registered providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return tethererr.Join(errs...)
	}
	return nil
}
