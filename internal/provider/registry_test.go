// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package provider_test

import (
	"context"
	"testing"

	"github.com/tether-dev/tether/internal/provider"
	tethererr "github.com/tether-dev/tether/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider is a minimal Provider for registry tests.
type stubProvider struct {
	name   string
	closed bool
}

func (s *stubProvider) Name() string                       { return s.name }
func (s *stubProvider) Available(context.Context) bool     { return true }
func (s *stubProvider) Close() error                       { s.closed = true; return nil }
func (s *stubProvider) ParseToolCalls(*provider.ChatResponse) []provider.ToolCall {
	return nil
}
func (s *stubProvider) Complete(context.Context, provider.ChatRequest) (*provider.ChatResponse, error) {
	return &provider.ChatResponse{Content: "ok"}, nil
}

func TestRegistryGetRegistered(t *testing.T) {
	r := provider.NewRegistry()
	p := &stubProvider{name: "anthropic"}
	r.Register("anthropic", p)

	got, err := r.Get("anthropic")
	require.NoError(t, err)
	assert.Same(t, p, got)
}

func TestRegistryGetUnknown(t *testing.T) {
	r := provider.NewRegistry()

	_, err := r.Get("missing")
	require.Error(t, err)
	assert.True(t, tethererr.HasCode(err, tethererr.CodeProviderNotFound))
	assert.Equal(t, "missing", tethererr.FieldsOf(err)["provider"])
}

func TestRegistryFirstFollowsRegistrationOrder(t *testing.T) {
	r := provider.NewRegistry()
	r.Register("openai", &stubProvider{name: "openai"})
	r.Register("anthropic", &stubProvider{name: "anthropic"})
	r.Register("google", &stubProvider{name: "google"})

	name, p, err := r.First()
	require.NoError(t, err)
	assert.Equal(t, "openai", name)
	assert.Equal(t, "openai", p.Name())

	assert.Equal(t, []string{"openai", "anthropic", "google"}, r.Names())
}

func TestRegistryReRegisterKeepsPosition(t *testing.T) {
	r := provider.NewRegistry()
	r.Register("a", &stubProvider{name: "a"})
	r.Register("b", &stubProvider{name: "b"})

	replacement := &stubProvider{name: "a2"}
	r.Register("a", replacement)

	assert.Equal(t, []string{"a", "b"}, r.Names())
	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, replacement, got)
}

func TestRegistryFirstEmpty(t *testing.T) {
	r := provider.NewRegistry()

	_, _, err := r.First()
	require.Error(t, err)
	assert.True(t, tethererr.HasCode(err, tethererr.CodeProviderNoneRegistered))
}

func TestRegistryCloseAll(t *testing.T) {
	r := provider.NewRegistry()
	a := &stubProvider{name: "a"}
	b := &stubProvider{name: "b"}
	r.Register("a", a)
	r.Register("b", b)

	require.NoError(t, r.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
