// Package coordinator implements the control plane of a sessid ensemble.
// See doc.go for complete package documentation.
package coordinator

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/sessid/internal/cluster"
	"github.com/dreamware/sessid/internal/session"
)

var (
	// ErrServerIDClaimed is returned when a server id is already held by a
	// different address.
	ErrServerIDClaimed = errors.New("server id already claimed")

	// ErrMissingAddr is returned when a registration carries no address.
	ErrMissingAddr = errors.New("missing server address")
)

// Registry records which address holds each server id in the ensemble.
//
// A server id may be held by at most one address at a time. This is the
// only coordination the ensemble needs: given distinct ids, every server can
// mint session ids on its own without risk of collision.
//
// Concurrency Model:
//   - Read operations use RLock for parallel access
//   - Write operations use Lock for exclusive access
//   - All returned data is copied
type Registry struct {
	// servers maps a claimed server id to its member record.
	servers map[int]cluster.ServerInfo

	// mu protects concurrent access to servers.
	mu sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		servers: make(map[int]cluster.ServerInfo),
	}
}

// Register claims info.ServerID for info.Addr.
//
// Validation:
//   - ServerID must be in [1,255] (session.ErrInvalidServerID)
//   - Addr must not be empty (ErrMissingAddr)
//   - ServerID must be free or already held by the same Addr (ErrServerIDClaimed)
//
// Returns:
//   - nil on a new claim or an idempotent re-registration
//
// Example:
//
//	if err := reg.Register(cluster.ServerInfo{ServerID: 2, Addr: addr}); err != nil {
//	    http.Error(w, err.Error(), http.StatusConflict)
//	}
func (r *Registry) Register(info cluster.ServerInfo) error {
	if err := session.ValidateServerID(int64(info.ServerID)); err != nil {
		return err
	}
	if info.Addr == "" {
		return ErrMissingAddr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if held, exists := r.servers[info.ServerID]; exists && held.Addr != info.Addr {
		return fmt.Errorf("%w: %d held by %s", ErrServerIDClaimed, info.ServerID, held.Addr)
	}
	r.servers[info.ServerID] = info
	return nil
}

// Deregister releases serverID. It reports whether the id was held.
func (r *Registry) Deregister(serverID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.servers[serverID]; !exists {
		return false
	}
	delete(r.servers, serverID)
	return true
}

// Get returns the member holding serverID, if any.
func (r *Registry) Get(serverID int) (cluster.ServerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.servers[serverID]
	return info, exists
}

// List returns all members sorted by server id.
func (r *Registry) List() []cluster.ServerInfo {
	r.mu.RLock()
	out := make([]cluster.ServerInfo, 0, len(r.servers))
	for _, info := range r.servers {
		out = append(out, info)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b cluster.ServerInfo) int { return a.ServerID - b.ServerID })
	return out
}

// Len returns the number of claimed server ids.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.servers)
}
