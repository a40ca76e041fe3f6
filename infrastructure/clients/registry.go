package clients

import (
	"strings"
	"sync"

	"social-dashboard/domain/model"
	"social-dashboard/usecase"
)

// Registry maps platforms to their publish clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[model.Platform]usecase.PlatformClient
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[model.Platform]usecase.PlatformClient)}
}

func (r *Registry) Register(platform model.Platform, client usecase.PlatformClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[model.Platform(strings.ToLower(string(platform)))] = client
}

func (r *Registry) Client(platform model.Platform) (usecase.PlatformClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[platform]
	return c, ok
}

// Platforms lists the registered platforms.
func (r *Registry) Platforms() []model.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Platform, 0, len(r.clients))
	for p := range r.clients {
		out = append(out, p)
	}
	return out
}
