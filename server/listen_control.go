//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// ListenWithBacklog creates a TCP listener with an explicit listen backlog.
// The socket is created manually so the backlog passed to listen() is under
// our control instead of the runtime's default (net.Listen always uses
// SOMAXCONN). SO_REUSEADDR is set so the address can be rebound immediately
// after a restart, without waiting out TIME_WAIT.
//
// The process:
//  1. Create socket
//  2. Set SO_REUSEADDR
//  3. Bind socket to address
//  4. Call listen() with the requested backlog
//  5. Wrap the file descriptor in a net.Listener
func ListenWithBacklog(ctx context.Context, network, address string, backlog int) (net.Listener, error) {
	addr, err := net.ResolveTCPAddr(network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve address: %w", err)
	}

	var family int
	var sockaddr unix.Sockaddr
	ipv6only := 1

	// A nil IP (e.g. ":8080") means wildcard. Use an IPv6 dual-stack socket
	// so both IPv4 and IPv6 clients are accepted, matching net.Listen.
	if addr.IP == nil {
		family = unix.AF_INET6
		sa := &unix.SockaddrInet6{Port: addr.Port}
		sockaddr = sa
		ipv6only = 0
	} else if ip4 := addr.IP.To4(); ip4 != nil {
		family = unix.AF_INET
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		sockaddr = sa
	} else {
		family = unix.AF_INET6
		sa := &unix.SockaddrInet6{Port: addr.Port}
		copy(sa.Addr[:], addr.IP.To16())
		// Zone ID for link-local addresses (fe80::)
		if addr.Zone != "" {
			if iface, err := net.InterfaceByName(addr.Zone); err == nil {
				sa.ZoneId = uint32(iface.Index)
			}
		}
		sockaddr = sa
	}

	syscall.ForkLock.RLock()
	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err == nil {
		syscall.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to create socket: %w", err)
	}

	// IPV6_V6ONLY must be set before bind on some platforms.
	if family == unix.AF_INET6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, ipv6only); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set IPV6_V6ONLY: %w", err)
		}
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set SO_REUSEADDR: %w", err)
	}

	// Nonblocking mode, matching the net package's own sockets.
	if err := syscall.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set nonblock: %w", err)
	}

	if err := unix.Bind(fd, sockaddr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind socket: %w", err)
	}

	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	file := os.NewFile(uintptr(fd), "listener")
	listener, err := net.FileListener(file)
	file.Close() // FileListener dups the fd
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	return listener, nil
}
