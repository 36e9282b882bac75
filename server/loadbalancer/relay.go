package loadbalancer

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/Koded0214h/MicroServices/logger"
	"github.com/Koded0214h/MicroServices/pkg/metrics"
)

// relayBufferSize is the chunk size used when copying in each direction.
const relayBufferSize = 4096

// Relay copies bytes between the client and backend connections until either
// side closes. Each direction runs in its own goroutine and closes both
// connections when its copy returns, which unblocks the opposite copy, so
// termination of one direction always tears down the whole session. Relay
// returns once both directions have finished.
//
// I/O errors are expected here (half-closed sockets, resets from either
// peer) and are never propagated; a failed relay is simply a finished one.
func Relay(clientConn, backendConn net.Conn) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer clientConn.Close()
		defer backendConn.Close()
		buf := make([]byte, relayBufferSize)
		n, err := io.CopyBuffer(backendConn, clientConn, buf)
		metrics.BytesThroughput.WithLabelValues("in").Add(float64(n))
		if err != nil && !isClosingError(err) {
			logger.Debug("relay client to backend ended", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer clientConn.Close()
		defer backendConn.Close()
		buf := make([]byte, relayBufferSize)
		n, err := io.CopyBuffer(clientConn, backendConn, buf)
		metrics.BytesThroughput.WithLabelValues("out").Add(float64(n))
		if err != nil && !isClosingError(err) {
			logger.Debug("relay backend to client ended", "error", err)
		}
	}()

	wg.Wait()
}

func isClosingError(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
