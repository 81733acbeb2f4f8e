// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

// Package inventory reconciles per-host certificate state into the
// authority's inventory store.
package inventory

import (
	"context"
	"log/slog"

	"github.com/quartzlabs/certfleet"
	"github.com/quartzlabs/certfleet/errors"
)

type reconciler struct {
	authority certfleet.Authority
	logger    *slog.Logger
}

// New returns a Reconciler that upserts records through the authority.
func New(authority certfleet.Authority, logger *slog.Logger) certfleet.Reconciler {
	return &reconciler{
		authority: authority,
		logger:    logger,
	}
}

// Reconcile upserts the authority's single record for the hostname.
// Records are superseded in place, never deleted, and the upsert is safe
// to repeat with the same record. A write failure is surfaced so the
// caller can flag the host; it does not roll back a delivered bundle.
func (r *reconciler) Reconcile(ctx context.Context, hostname string, record certfleet.CertificateRecord) error {
	if err := r.authority.WriteInventory(ctx, hostname, record); err != nil {
		r.logger.Warn("inventory write failed; stored record is now stale",
			"hostname", hostname,
			"serial", record.SerialNumber,
			"error", err,
		)
		return errors.Wrap(errors.ErrInventoryWriteFailure, err)
	}

	return nil
}
