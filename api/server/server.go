// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/emostov/substrate/utils/logging"
)

const (
	baseURL           = "/ext"
	readHeaderTimeout = 10 * time.Second
)

var errAlreadyServing = errors.New("server is already serving")

// Server maintains the HTTP router
type Server struct {
	// log this server writes to
	log logging.Logger
	// Maps endpoints to handlers
	router *router
	// points the the router handlers
	handler http.Handler
	// Listens for HTTP traffic on this address
	listenAddress string

	shutdownTimeout time.Duration

	lock   sync.Mutex
	srv    *http.Server
	closed bool
}

// New returns an API server listening on [host]:[port] once dispatched.
func New(
	log logging.Logger,
	host string,
	port uint16,
	allowedOrigins []string,
	shutdownTimeout time.Duration,
) *Server {
	router := newRouter()
	log.Info("API created",
		zap.Strings("allowedOrigins", allowedOrigins),
	)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
	}).Handler(router)
	return &Server{
		log:             log,
		router:          router,
		handler:         gziphandler.GzipHandler(corsHandler),
		listenAddress:   net.JoinHostPort(host, strconv.Itoa(int(port))),
		shutdownTimeout: shutdownTimeout,
	}
}

// AddRoute registers [handler] at /ext/[base][endpoint].
func (s *Server) AddRoute(handler http.Handler, base, endpoint string) error {
	url := fmt.Sprintf("%s/%s", baseURL, base)
	s.log.Info("adding route",
		zap.String("url", url),
		zap.String("endpoint", endpoint),
	)
	return s.router.AddRouter(url, endpoint, handler)
}

// Handler returns the handler serving every registered route.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Dispatch starts the API server. It blocks until the server is shut down.
func (s *Server) Dispatch() error {
	listener, err := net.Listen("tcp", s.listenAddress)
	if err != nil {
		return err
	}
	return s.DispatchOn(listener)
}

// DispatchOn serves on [listener]. It blocks until the server is shut down.
func (s *Server) DispatchOn(listener net.Listener) error {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return listener.Close()
	}
	if s.srv != nil {
		s.lock.Unlock()
		_ = listener.Close()
		return errAlreadyServing
	}
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	srv := s.srv
	s.lock.Unlock()

	s.log.Info("HTTP API server listening",
		zap.Stringer("address", listener.Addr()),
	)
	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown this server
func (s *Server) Shutdown() error {
	s.lock.Lock()
	srv := s.srv
	s.closed = true
	s.lock.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
