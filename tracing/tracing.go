// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package tracing

import (
	"context"

	"github.com/quartzlabs/certfleet"
	"go.opentelemetry.io/otel/trace"
)

var _ certfleet.Service = (*tracingMiddleware)(nil)

type tracingMiddleware struct {
	tracer trace.Tracer
	svc    certfleet.Service
}

// New returns the orchestration service with tracing capabilities.
func New(svc certfleet.Service, tracer trace.Tracer) certfleet.Service {
	return &tracingMiddleware{tracer, svc}
}

func (tm *tracingMiddleware) Run(ctx context.Context, hosts []certfleet.Host) (certfleet.RunSummary, error) {
	ctx, span := tm.tracer.Start(ctx, "run")
	defer span.End()
	return tm.svc.Run(ctx, hosts)
}

func (tm *tracingMiddleware) InspectHost(ctx context.Context, host certfleet.Host) (certfleet.CertificateRecord, error) {
	ctx, span := tm.tracer.Start(ctx, "inspect_host")
	defer span.End()
	return tm.svc.InspectHost(ctx, host)
}

func (tm *tracingMiddleware) RetrieveInventory(ctx context.Context, hostname string) (certfleet.CertificateRecord, error) {
	ctx, span := tm.tracer.Start(ctx, "retrieve_inventory")
	defer span.End()
	return tm.svc.RetrieveInventory(ctx, hostname)
}

func (tm *tracingMiddleware) ListInventory(ctx context.Context) ([]certfleet.CertificateRecord, error) {
	ctx, span := tm.tracer.Start(ctx, "list_inventory")
	defer span.End()
	return tm.svc.ListInventory(ctx)
}
