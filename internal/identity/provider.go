// Package identity defines the boundary contract with the identity/role
// provider. The engine trusts the role a provider reports but re-validates
// it on every operation.
package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/nhle/taskflow/internal/model"
)

// Provider resolves actor ids to identities.
type Provider interface {
	Lookup(ctx context.Context, id string) (model.Actor, error)
}

// StaticProvider is a map-backed Provider for embedders and tests.
type StaticProvider struct {
	mu     sync.RWMutex
	actors map[string]model.Actor
}

// NewStaticProvider creates a StaticProvider preloaded with actors.
func NewStaticProvider(actors ...model.Actor) *StaticProvider {
	p := &StaticProvider{actors: make(map[string]model.Actor, len(actors))}
	for _, a := range actors {
		p.actors[a.ID] = a
	}
	return p
}

// Add registers or replaces an actor.
func (p *StaticProvider) Add(a model.Actor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actors[a.ID] = a
}

// Lookup returns the actor for id, or an error if unknown.
func (p *StaticProvider) Lookup(_ context.Context, id string) (model.Actor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	a, ok := p.actors[id]
	if !ok {
		return model.Actor{}, fmt.Errorf("unknown actor %q", id)
	}
	return a, nil
}
