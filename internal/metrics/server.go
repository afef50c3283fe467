package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves /metrics on an HTTP listener bound to the address it is
// given; it does not itself restrict that address to loopback. It is
// entirely separate from the control socket: the daemon's protocol has
// no metrics operation of its own.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// NewServer builds a metrics HTTP server bound to addr (typically a
// loopback address such as "127.0.0.1:9090") serving the collectors
// registered in reg.
func NewServer(addr string, reg *prometheus.Registry) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: listen on %q: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{Handler: mux},
		listener:   ln,
	}, nil
}

// Addr returns the address the server is actually listening on, useful
// when addr was passed as "127.0.0.1:0".
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Serve blocks, serving requests until Shutdown is called.
func (s *Server) Serve() error {
	err := s.httpServer.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server within the given timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
