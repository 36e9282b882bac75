package loadbalancer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestBackend opens a real TCP listener that accepts and immediately
// closes connections, which is all a connect probe needs.
func startTestBackend(t *testing.T) (string, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

func TestMonitorDropsUnreachableBackends(t *testing.T) {
	addrA, closeA := startTestBackend(t)
	addrB, closeB := startTestBackend(t)
	addrC, closeC := startTestBackend(t)
	defer closeA()
	defer closeC()

	reg, err := NewRegistry([]string{addrA, addrB, addrC})
	require.NoError(t, err)

	closeB()

	m := NewMonitor(reg, time.Hour, 500*time.Millisecond)
	m.checkOnce()

	snap := reg.HealthySnapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, addrA, snap[0].Addr())
	assert.Equal(t, addrC, snap[1].Addr())
}

func TestMonitorAllBackendsDown(t *testing.T) {
	addrA, closeA := startTestBackend(t)
	addrB, closeB := startTestBackend(t)
	closeA()
	closeB()

	reg, err := NewRegistry([]string{addrA, addrB})
	require.NoError(t, err)

	m := NewMonitor(reg, time.Hour, 500*time.Millisecond)
	m.checkOnce()

	assert.Equal(t, 0, reg.HealthyCount())
	_, ok := reg.Next()
	assert.False(t, ok)
}

func TestMonitorRecoversBackend(t *testing.T) {
	addr, closeBackend := startTestBackend(t)
	closeBackend()

	reg, err := NewRegistry([]string{addr})
	require.NoError(t, err)

	m := NewMonitor(reg, time.Hour, 500*time.Millisecond)
	m.checkOnce()
	require.Equal(t, 0, reg.HealthyCount())

	// Bring the backend back on the same address.
	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	m.checkOnce()
	assert.Equal(t, 1, reg.HealthyCount())
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	addr, closeBackend := startTestBackend(t)
	defer closeBackend()

	reg, err := NewRegistry([]string{addr})
	require.NoError(t, err)

	m := NewMonitor(reg, 10*time.Millisecond, 500*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after context cancellation")
	}
}

func TestMonitorDefaults(t *testing.T) {
	reg, err := NewRegistry([]string{"10.0.0.1:9001"})
	require.NoError(t, err)

	m := NewMonitor(reg, 0, 0)
	assert.Equal(t, DefaultHealthInterval, m.interval)
	assert.Equal(t, DefaultProbeTimeout, m.timeout)
}
