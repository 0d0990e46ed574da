package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"payment-router/internal/services"
	"sync"
	"time"
)

// HttpServer runs one or more acceptors on the same address. Each acceptor
// has its own listener and http.Server; they share only the payment service.
type HttpServer struct {
	ps        services.PaymentsInterface
	addr      string
	acceptors int

	mu      sync.Mutex
	closed  bool
	servers []*http.Server
}

func NewServer(addr string, acceptors int, ps services.PaymentsInterface) *HttpServer {
	if acceptors < 1 {
		acceptors = 1
	}

	return &HttpServer{
		ps:        ps,
		addr:      addr,
		acceptors: acceptors,
	}
}

// ListenAndServe blocks until every acceptor has stopped. It returns
// http.ErrServerClosed after Shutdown.
func (s *HttpServer) ListenAndServe(ctx context.Context) error {
	listeners, err := listen(ctx, s.addr, s.acceptors)
	if err != nil {
		return err
	}

	handler := s.Handler()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		for _, l := range listeners {
			l.Close()
		}
		return http.ErrServerClosed
	}
	for range listeners {
		s.servers = append(s.servers, s.createHTTPServer(handler))
	}
	servers := s.servers
	s.mu.Unlock()

	errs := make(chan error, len(servers))
	for i, srv := range servers {
		go func(srv *http.Server, i int) {
			errs <- srv.Serve(listeners[i])
		}(srv, i)
	}

	slog.Info("http server listening", "addr", s.addr, "acceptors", len(servers))

	var first error
	for range servers {
		if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) && first == nil {
			first = err
			// one broken acceptor takes the others down with it
			go s.Shutdown(context.Background())
		}
	}

	if first != nil {
		return first
	}
	return http.ErrServerClosed
}

func (s *HttpServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	servers := s.servers
	s.mu.Unlock()

	var errs []error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handler is the routed handler with the middleware chain applied.
func (s *HttpServer) Handler() http.Handler {
	router := s.loadRoutes(http.NewServeMux())
	middlewareChain := NewChain(
		s.recoverPanic,
		s.noCache,
		s.instrument,
	)

	return middlewareChain(router)
}

func (s *HttpServer) createHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		IdleTimeout:  10 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}
