// Package router holds the zap routers a shield may forward redeemed
// underlying through, converting it into another asset for the user.
package router

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Router receives uAmount of underlying already transferred to its address
// and delivers the converted output to user.
type Router interface {
	RouteTo(user common.Address, uAmount *big.Int, data []byte) error
}

// Registry resolves router addresses to implementations.
type Registry struct {
	mu      sync.RWMutex
	routers map[common.Address]Router
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{routers: make(map[common.Address]Router)}
}

// Register binds addr to r.
func (r *Registry) Register(addr common.Address, impl Router) error {
	if impl == nil {
		return fmt.Errorf("router: nil implementation for %s", addr.Hex())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routers[addr]; exists {
		return fmt.Errorf("router: %s already registered", addr.Hex())
	}
	r.routers[addr] = impl
	return nil
}

// Lookup returns the router bound to addr.
func (r *Registry) Lookup(addr common.Address) (Router, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.routers[addr]
	return impl, ok
}

// Addresses lists registered routers in byte order.
func (r *Registry) Addresses() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.Address, 0, len(r.routers))
	for addr := range r.routers {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}
