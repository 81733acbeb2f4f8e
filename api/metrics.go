// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/quartzlabs/certfleet"
)

var _ certfleet.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     certfleet.Service
}

// MetricsMiddleware instruments core service by tracking request count and latency.
func MetricsMiddleware(svc certfleet.Service, counter metrics.Counter, latency metrics.Histogram) certfleet.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Run(ctx context.Context, hosts []certfleet.Host) (certfleet.RunSummary, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "run").Add(1)
		mm.latency.With("method", "run").Observe(time.Since(begin).Seconds())
	}(time.Now())
	return mm.svc.Run(ctx, hosts)
}

func (mm *metricsMiddleware) InspectHost(ctx context.Context, host certfleet.Host) (certfleet.CertificateRecord, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "inspect_host").Add(1)
		mm.latency.With("method", "inspect_host").Observe(time.Since(begin).Seconds())
	}(time.Now())
	return mm.svc.InspectHost(ctx, host)
}

func (mm *metricsMiddleware) RetrieveInventory(ctx context.Context, hostname string) (certfleet.CertificateRecord, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "retrieve_inventory").Add(1)
		mm.latency.With("method", "retrieve_inventory").Observe(time.Since(begin).Seconds())
	}(time.Now())
	return mm.svc.RetrieveInventory(ctx, hostname)
}

func (mm *metricsMiddleware) ListInventory(ctx context.Context) ([]certfleet.CertificateRecord, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list_inventory").Add(1)
		mm.latency.With("method", "list_inventory").Observe(time.Since(begin).Seconds())
	}(time.Now())
	return mm.svc.ListInventory(ctx)
}
