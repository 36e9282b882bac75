// Package loadbalancer implements a TCP load balancer that spreads client
// connections over a pool of backends using round-robin selection, with
// active TCP health probing deciding which backends are eligible.
package loadbalancer

import (
	"fmt"
	"net"
	"sync"

	"github.com/Koded0214h/MicroServices/pkg/metrics"
)

// Endpoint identifies one backend as an immutable host and port pair.
type Endpoint struct {
	host string
	port string
}

// ParseEndpoint parses a "host:port" address into an Endpoint.
func ParseEndpoint(addr string) (Endpoint, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid backend address %q: %w", addr, err)
	}
	if host == "" {
		return Endpoint{}, fmt.Errorf("invalid backend address %q: missing host", addr)
	}
	return Endpoint{host: host, port: port}, nil
}

// Addr returns the dialable "host:port" form of the endpoint.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.host, e.port)
}

func (e Endpoint) String() string {
	return e.Addr()
}

// Registry holds the configured backend pool and the subset of it that is
// currently passing health checks. The healthy subset and the round-robin
// cursor are guarded by a single mutex so a selection always pairs a cursor
// value with the healthy list it indexes into. The mutex is never held
// across network I/O.
type Registry struct {
	all []Endpoint // fixed at construction

	mu      sync.Mutex
	healthy []Endpoint // always a subset of all, replaced wholesale
	next    uint64     // monotonic round-robin cursor, never reset
}

// NewRegistry builds a registry from configured backend addresses. All
// backends start out healthy; the first probe cycle corrects the set.
func NewRegistry(addrs []string) (*Registry, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no backend addresses provided")
	}
	all := make([]Endpoint, 0, len(addrs))
	seen := make(map[string]struct{}, len(addrs))
	for _, addr := range addrs {
		ep, err := ParseEndpoint(addr)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[ep.Addr()]; dup {
			return nil, fmt.Errorf("duplicate backend address %q", ep.Addr())
		}
		seen[ep.Addr()] = struct{}{}
		all = append(all, ep)
	}

	r := &Registry{
		all:     all,
		healthy: append([]Endpoint(nil), all...),
	}
	metrics.BackendsHealthy.Set(float64(len(all)))
	return r, nil
}

// All returns the full configured pool. The returned slice is a copy.
func (r *Registry) All() []Endpoint {
	return append([]Endpoint(nil), r.all...)
}

// SetHealthy replaces the healthy subset wholesale. Endpoints not present in
// the configured pool are ignored; the stored subset keeps the pool's
// configured order so round-robin rotation stays stable across updates.
func (r *Registry) SetHealthy(eps []Endpoint) {
	alive := make(map[string]struct{}, len(eps))
	for _, ep := range eps {
		alive[ep.Addr()] = struct{}{}
	}
	healthy := make([]Endpoint, 0, len(alive))
	for _, ep := range r.all {
		if _, ok := alive[ep.Addr()]; ok {
			healthy = append(healthy, ep)
		}
	}

	r.mu.Lock()
	r.healthy = healthy
	r.mu.Unlock()

	metrics.BackendsHealthy.Set(float64(len(healthy)))
}

// HealthySnapshot returns a copy of the current healthy subset.
func (r *Registry) HealthySnapshot() []Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Endpoint(nil), r.healthy...)
}

// HealthyCount returns the number of backends currently considered healthy.
func (r *Registry) HealthyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.healthy)
}

// Next selects the next backend in round-robin order. It reports false when
// no backend is healthy. The cursor advances only on successful selection
// and is never reset, so rotation continues from where it left off even
// after the healthy subset changes.
func (r *Registry) Next() (Endpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.healthy) == 0 {
		return Endpoint{}, false
	}
	ep := r.healthy[r.next%uint64(len(r.healthy))]
	r.next++
	return ep, true
}
