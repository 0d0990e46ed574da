//go:build !unix

package server

import (
	"context"
	"fmt"
	"net"
)

// listen opens a single listener; platforms without SO_REUSEPORT run one
// acceptor.
func listen(ctx context.Context, addr string, _ int) ([]net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return []net.Listener{ln}, nil
}
