package loadbalancer

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/Koded0214h/MicroServices/logger"
	"github.com/Koded0214h/MicroServices/pkg/metrics"
)

const (
	// DefaultHealthInterval is the pause between probe cycles.
	DefaultHealthInterval = 5 * time.Second
	// DefaultProbeTimeout bounds a single TCP connect probe.
	DefaultProbeTimeout = 1 * time.Second
)

// Monitor periodically probes every configured backend with a TCP connect
// and publishes the set of reachable backends to the registry in one
// wholesale replacement. A backend is healthy exactly when the probe
// connection succeeds within the probe timeout.
type Monitor struct {
	registry *Registry
	interval time.Duration
	timeout  time.Duration

	// last probe verdict per backend, used to log transitions only
	lastUp map[string]bool
}

// NewMonitor creates a health monitor for the registry's pool. Zero values
// for interval and timeout fall back to the defaults.
func NewMonitor(registry *Registry, interval, timeout time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Monitor{
		registry: registry,
		interval: interval,
		timeout:  timeout,
		lastUp:   make(map[string]bool),
	}
}

// Run probes the pool once immediately, then on every interval tick until
// the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.checkOnce()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkOnce()
		}
	}
}

// checkOnce probes all backends concurrently and replaces the registry's
// healthy subset with the probe results.
func (m *Monitor) checkOnce() {
	all := m.registry.All()
	results := make([]bool, len(all))

	var wg sync.WaitGroup
	for i, ep := range all {
		wg.Add(1)
		go func(i int, ep Endpoint) {
			defer wg.Done()
			results[i] = m.probe(ep)
		}(i, ep)
	}
	wg.Wait()

	healthy := make([]Endpoint, 0, len(all))
	for i, ep := range all {
		up := results[i]
		if up {
			healthy = append(healthy, ep)
		}

		addr := ep.Addr()
		if prev, seen := m.lastUp[addr]; !seen || prev != up {
			if up {
				logger.Info("backend up", "backend", addr)
			} else {
				logger.Warn("backend down", "backend", addr)
			}
		}
		m.lastUp[addr] = up
	}

	m.registry.SetHealthy(healthy)
}

func (m *Monitor) probe(ep Endpoint) bool {
	conn, err := net.DialTimeout("tcp", ep.Addr(), m.timeout)
	if err != nil {
		metrics.HealthProbesTotal.WithLabelValues(ep.Addr(), "failure").Inc()
		return false
	}
	conn.Close()
	metrics.HealthProbesTotal.WithLabelValues(ep.Addr(), "success").Inc()
	return true
}
