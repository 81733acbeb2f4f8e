// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quartzlabs/certfleet/internal/server"
)

const (
	httpProtocol  = "http"
	httpsProtocol = "https"
)

type httpServer struct {
	server.BaseServer
	server *http.Server
}

var _ server.Server = (*httpServer)(nil)

// NewServer returns an HTTP server with graceful shutdown wired to the
// run context.
func NewServer(ctx context.Context, cancel context.CancelFunc, name string, config server.Config, handler http.Handler, logger *slog.Logger) server.Server {
	baseServer := server.NewBaseServer(ctx, cancel, name, config, logger)

	return &httpServer{
		BaseServer: baseServer,
		server: &http.Server{
			Addr:              baseServer.Address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *httpServer) Start() error {
	errCh := make(chan error)

	switch {
	case s.Config.CertFile != "" || s.Config.KeyFile != "":
		s.Logger.Info(fmt.Sprintf("%s service %s server listening at %s with TLS", s.Name, httpsProtocol, s.Address))
		go func() {
			errCh <- s.server.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
		}()
	default:
		s.Logger.Info(fmt.Sprintf("%s service %s server listening at %s without TLS", s.Name, httpProtocol, s.Address))
		go func() {
			errCh <- s.server.ListenAndServe()
		}()
	}

	select {
	case <-s.Ctx.Done():
		return s.Stop()
	case err := <-errCh:
		s.Cancel()
		return err
	}
}

func (s *httpServer) Stop() error {
	defer s.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), server.StopWaitTime)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.Logger.Error(fmt.Sprintf("%s service %s server failed to shutdown: %v", s.Name, httpProtocol, err))
		return s.server.Close()
	}

	s.Logger.Info(fmt.Sprintf("%s %s service shutdown at %s", s.Name, httpProtocol, s.Address))
	return nil
}
