// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quartzlabs/certfleet"
)

var _ certfleet.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    certfleet.Service
}

// LoggingMiddleware adds logging facilities to the core service.
func LoggingMiddleware(svc certfleet.Service, logger *slog.Logger) certfleet.Service {
	return &loggingMiddleware{logger, svc}
}

func (lm *loggingMiddleware) Run(ctx context.Context, hosts []certfleet.Host) (summary certfleet.RunSummary, err error) {
	defer func(begin time.Time) {
		message := fmt.Sprintf("Method run for %d hosts took %s to complete", len(hosts), time.Since(begin))
		if err != nil {
			lm.logger.Warn(fmt.Sprintf("%s with error: %s.", message, err))
			return
		}
		lm.logger.Info(message)
	}(time.Now())
	return lm.svc.Run(ctx, hosts)
}

func (lm *loggingMiddleware) InspectHost(ctx context.Context, host certfleet.Host) (record certfleet.CertificateRecord, err error) {
	defer func(begin time.Time) {
		message := fmt.Sprintf("Method inspect_host for host %s took %s to complete", host.Hostname, time.Since(begin))
		if err != nil {
			lm.logger.Warn(fmt.Sprintf("%s with error: %s.", message, err))
			return
		}
		lm.logger.Info(message)
	}(time.Now())
	return lm.svc.InspectHost(ctx, host)
}

func (lm *loggingMiddleware) RetrieveInventory(ctx context.Context, hostname string) (record certfleet.CertificateRecord, err error) {
	defer func(begin time.Time) {
		message := fmt.Sprintf("Method retrieve_inventory for host %s took %s to complete", hostname, time.Since(begin))
		if err != nil {
			lm.logger.Warn(fmt.Sprintf("%s with error: %s.", message, err))
			return
		}
		lm.logger.Info(message)
	}(time.Now())
	return lm.svc.RetrieveInventory(ctx, hostname)
}

func (lm *loggingMiddleware) ListInventory(ctx context.Context) (records []certfleet.CertificateRecord, err error) {
	defer func(begin time.Time) {
		message := fmt.Sprintf("Method list_inventory took %s to complete", time.Since(begin))
		if err != nil {
			lm.logger.Warn(fmt.Sprintf("%s with error: %s.", message, err))
			return
		}
		lm.logger.Info(message)
	}(time.Now())
	return lm.svc.ListInventory(ctx)
}
