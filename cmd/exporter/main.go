// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/quartzlabs/certfleet"
	"github.com/quartzlabs/certfleet/exporter"
	"github.com/quartzlabs/certfleet/internal/server"
	httpserver "github.com/quartzlabs/certfleet/internal/server/http"
	"github.com/quartzlabs/certfleet/pki"
	"golang.org/x/sync/errgroup"
)

const (
	svcName        = "certfleet-exporter"
	envPrefixAuth  = "CERTFLEET_AUTHORITY_"
	envPrefixHTTP  = "CERTFLEET_EXPORTER_HTTP_"
	defSvcHTTPPort = "9110"
)

type config struct {
	LogLevel      string        `env:"CERTFLEET_EXPORTER_LOG_LEVEL"      envDefault:"info"`
	FleetPath     string        `env:"CERTFLEET_FLEET_PATH"              envDefault:"./fleet.yaml"`
	ScrapeTimeout time.Duration `env:"CERTFLEET_EXPORTER_SCRAPE_TIMEOUT" envDefault:"30s"`
}

type authorityConfig struct {
	URL       string `env:"URL"        envDefault:"http://localhost:8200"`
	AppRole   string `env:"APP_ROLE"   envDefault:""`
	AppSecret string `env:"APP_SECRET" envDefault:""`
	Namespace string `env:"NAMESPACE"  envDefault:""`
	PKIPath   string `env:"PKI_PATH"   envDefault:"pki_int"`
	PKIRole   string `env:"PKI_ROLE"   envDefault:"fleet-hosts"`
	KVMount   string `env:"KV_MOUNT"   envDefault:"secret"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load %s configuration : %s", svcName, err)
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err.Error())
	}

	authCfg := authorityConfig{}
	if err := env.ParseWithOptions(&authCfg, env.Options{Prefix: envPrefixAuth}); err != nil {
		log.Fatalf("failed to load %s authority configuration : %s", svcName, err)
	}

	fleetConf, err := certfleet.LoadFleetConfig(cfg.FleetPath)
	if err != nil {
		log.Fatal(fmt.Sprintf("failed to load fleet file %s: %s", cfg.FleetPath, err))
	}

	httpServerConfig := server.Config{Port: defSvcHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		log.Fatalf("failed to load %s HTTP server configuration : %s", svcName, err)
	}

	authority, err := pki.NewAuthority(authCfg.AppRole, authCfg.AppSecret, authCfg.URL, authCfg.Namespace,
		authCfg.PKIPath, authCfg.PKIRole, authCfg.KVMount, pki.DefaultRetryPolicy(), logger)
	if err != nil {
		log.Fatal(fmt.Sprintf("failed to create authority client: %s", err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(exporter.NewCollector(authority, fleetConf.Policy, cfg.ScrapeTimeout, logger))

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig,
		exporter.MakeHandler(registry, authority, cfg.ScrapeTimeout), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service terminated: %s", svcName, err))
	}
}

func initLogger(levelText string) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelText)); err != nil {
		return &slog.Logger{}, fmt.Errorf(`{"level":"error","message":"%s: %s","ts":"%s"}`, err, levelText, time.RFC3339Nano)
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(logHandler), nil
}
