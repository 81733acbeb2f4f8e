// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

// Package server holds the shared lifecycle for long-running servers.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// StopWaitTime bounds graceful shutdown.
const StopWaitTime = 5 * time.Second

// Config is the common server configuration.
type Config struct {
	Host     string `env:"HOST"        envDefault:"localhost"`
	Port     string `env:"PORT"        envDefault:""`
	CertFile string `env:"SERVER_CERT" envDefault:""`
	KeyFile  string `env:"SERVER_KEY"  envDefault:""`
}

// Server is a long-running component with a graceful stop.
type Server interface {
	Start() error
	Stop() error
}

// BaseServer carries the state shared by server implementations.
type BaseServer struct {
	Ctx     context.Context
	Cancel  context.CancelFunc
	Name    string
	Address string
	Config  Config
	Logger  *slog.Logger
}

// NewBaseServer builds the shared server state.
func NewBaseServer(ctx context.Context, cancel context.CancelFunc, name string, config Config, logger *slog.Logger) BaseServer {
	return BaseServer{
		Ctx:     ctx,
		Cancel:  cancel,
		Name:    name,
		Address: fmt.Sprintf("%s:%s", config.Host, config.Port),
		Config:  config,
		Logger:  logger,
	}
}

// StopSignalHandler stops the given servers when the context is done or
// a termination signal arrives.
func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, svcName string, servers ...Server) error {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGABRT)

	select {
	case s := <-sig:
		defer cancel()
		for _, server := range servers {
			if err := server.Stop(); err != nil {
				logger.Error(fmt.Sprintf("failed to stop %s server: %s", svcName, err))
			}
		}
		logger.Info(fmt.Sprintf("%s service shutdown by signal: %s", svcName, s))
		return nil
	case <-ctx.Done():
		return nil
	}
}
