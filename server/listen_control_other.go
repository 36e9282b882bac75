//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package server

import (
	"context"
	"net"
)

// ListenWithBacklog falls back to the runtime's default backlog on platforms
// where the listen() syscall is not directly reachable.
func ListenWithBacklog(ctx context.Context, network, address string, backlog int) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, network, address)
}
