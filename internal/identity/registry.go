// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"net/http"
	"sort"

	"github.com/taibuivan/authcore/internal/platform/apperr"
)

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry registers providers by [Provider.Name]. A later provider with
// the same name replaces an earlier one.
func NewRegistry(providers ...Provider) *Registry {
	registry := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, provider := range providers {
		registry.providers[provider.Name()] = provider
	}
	return registry
}

// Get returns the provider registered under name.
func (registry *Registry) Get(name string) (Provider, error) {
	provider, ok := registry.providers[name]
	if !ok {
		return nil, apperr.New(apperr.CodeUnsupportedProvider, http.StatusBadRequest,
			"Unsupported identity provider: "+name)
	}
	return provider, nil
}

// Names lists registered provider names in sorted order.
func (registry *Registry) Names() []string {
	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
