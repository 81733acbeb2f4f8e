// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/quartzlabs/certfleet"
	"github.com/quartzlabs/certfleet/api"
	"github.com/quartzlabs/certfleet/distributor"
	"github.com/quartzlabs/certfleet/inspector"
	jaegerClient "github.com/quartzlabs/certfleet/internal/jaeger"
	"github.com/quartzlabs/certfleet/internal/prometheus"
	"github.com/quartzlabs/certfleet/internal/uuid"
	"github.com/quartzlabs/certfleet/inventory"
	"github.com/quartzlabs/certfleet/pki"
	"github.com/quartzlabs/certfleet/target"
	"github.com/quartzlabs/certfleet/tracing"
	"go.opentelemetry.io/otel/trace"
)

const (
	svcName       = "certfleet"
	envPrefixAuth = "CERTFLEET_AUTHORITY_"
	envPrefixSSH  = "CERTFLEET_SSH_"

	// exitFailedHosts signals a completed run in which at least one host
	// ended up failed or flagged.
	exitFailedHosts = 2
)

type config struct {
	LogLevel   string        `env:"CERTFLEET_LOG_LEVEL"   envDefault:"info"`
	FleetPath  string        `env:"CERTFLEET_FLEET_PATH"  envDefault:"./fleet.yaml"`
	RunTimeout time.Duration `env:"CERTFLEET_RUN_TIMEOUT" envDefault:"30m"`
	Workers    int           `env:"CERTFLEET_WORKERS"     envDefault:"5"`
	JaegerURL  url.URL       `env:"CERTFLEET_JAEGER_URL"  envDefault:"http://jaeger:4318"`
	InstanceID string        `env:"CERTFLEET_INSTANCE_ID" envDefault:""`
	TraceRatio float64       `env:"CERTFLEET_TRACE_RATIO" envDefault:"1.0"`
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
	defer cancel()

	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load %s configuration : %s", svcName, err)
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID, err = uuid.New().ID()
		if err != nil {
			log.Fatal(fmt.Sprintf("failed to generate instance ID: %s", err))
		}
	}

	authCfg := authorityConfig{}
	if err := env.ParseWithOptions(&authCfg, env.Options{Prefix: envPrefixAuth}); err != nil {
		log.Fatalf("failed to load %s authority configuration : %s", svcName, err)
	}

	sshCfg := target.SSHConfig{}
	if err := env.ParseWithOptions(&sshCfg, env.Options{Prefix: envPrefixSSH}); err != nil {
		log.Fatalf("failed to load %s SSH configuration : %s", svcName, err)
	}

	fleetConf, err := certfleet.LoadFleetConfig(cfg.FleetPath)
	if err != nil {
		log.Fatal(fmt.Sprintf("failed to load fleet file %s: %s", cfg.FleetPath, err))
	}

	tp, err := jaegerClient.NewProvider(ctx, svcName, cfg.JaegerURL, cfg.InstanceID, cfg.TraceRatio)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to init Jaeger: %s", err))
	}
	defer func() {
		if tp == nil {
			return
		}
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("Error shutting down tracer provider: %v", err))
		}
	}()
	var tracer trace.Tracer
	if tp != nil {
		tracer = tp.Tracer(svcName)
	}

	svc, err := newService(cfg, authCfg, sshCfg, fleetConf, tracer, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to create %s service: %s", svcName, err))
		os.Exit(1)
	}

	runCtx, runCancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer runCancel()

	summary, err := svc.Run(runCtx, fleetConf.Hosts)
	if err != nil {
		logger.Error(fmt.Sprintf("%s run terminated: %s", svcName, err))
		os.Exit(1)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Error(fmt.Sprintf("failed to render run summary: %s", err))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, string(out))

	if summary.Failed > 0 || summary.Aborted > 0 {
		os.Exit(exitFailedHosts)
	}
}

func newService(cfg config, authCfg authorityConfig, sshCfg target.SSHConfig, fleetConf certfleet.FleetConfig, tracer trace.Tracer, logger *slog.Logger) (certfleet.Service, error) {
	authority, err := pki.NewAuthority(authCfg.AppRole, authCfg.AppSecret, authCfg.URL, authCfg.Namespace,
		authCfg.PKIPath, authCfg.PKIRole, authCfg.KVMount, pki.DefaultRetryPolicy(), logger)
	if err != nil {
		return nil, err
	}

	dialer, err := newDialer(sshCfg, fleetConf.Hosts)
	if err != nil {
		return nil, err
	}

	insp := inspector.New(dialer, logger)
	dist := distributor.New(dialer, fleetConf.Policy.Owner, fleetConf.Policy.Group, logger)
	rec := inventory.New(authority, logger)

	svc, err := certfleet.NewService(authority, insp, dist, rec, fleetConf.Policy, cfg.Workers, uuid.New(), logger)
	if err != nil {
		return nil, err
	}
	svc = api.LoggingMiddleware(svc, logger)
	counter, latency := prometheus.MakeMetrics(svcName, "run")
	svc = api.MetricsMiddleware(svc, counter, latency)
	if tracer != nil {
		svc = tracing.New(svc, tracer)
	}

	return svc, nil
}

// newDialer picks the transport from the fleet file: SSH when at least
// one host carries an address, the local filesystem otherwise.
func newDialer(sshCfg target.SSHConfig, hosts []certfleet.Host) (target.Dialer, error) {
	for _, host := range hosts {
		if host.Address != "" {
			return target.NewSSHDialer(sshCfg)
		}
	}
	return target.NewLocalDialer(), nil
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
