package translate

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hytenic/play-server/internal/domain"
)

// Registry owns the per-connection agents: lazy creation keyed by connection
// id, symmetric teardown on release.
type Registry struct {
	mu      sync.Mutex
	agents  map[domain.ConnID]*Agent
	backend Backend
}

func NewRegistry(backend Backend) *Registry {
	return &Registry{
		agents:  make(map[domain.ConnID]*Agent),
		backend: backend,
	}
}

// EnsureAgent returns the live agent for connID, creating one if needed.
// While an agent is live, every call returns the same instance.
func (r *Registry) EnsureAgent(connID domain.ConnID) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[connID]; ok {
		return a
	}
	a := NewAgent(connID, r.backend)
	r.agents[connID] = a
	log.Info().Str("module", "translate.registry").Str("conn", string(connID)).Msg("created translation agent")
	return a
}

// Translate routes text through the owner's agent. Every failure mode,
// including a stopped agent, degrades to "" so callers can treat empty as
// "no translation available".
func (r *Registry) Translate(ctx context.Context, connID domain.ConnID, text string) string {
	out, err := r.EnsureAgent(connID).Submit(ctx, text)
	if err != nil {
		return ""
	}
	return out
}

// Release removes the mapping and stops the removed agent, draining its
// queue. No-op when no agent exists. The map entry is removed before Stop so
// a concurrent EnsureAgent can never resurrect the stopping agent.
func (r *Registry) Release(connID domain.ConnID) {
	r.mu.Lock()
	a, ok := r.agents[connID]
	if ok {
		delete(r.agents, connID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	a.Stop()
	log.Info().Str("module", "translate.registry").Str("conn", string(connID)).Msg("released translation agent")
}
