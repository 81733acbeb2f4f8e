// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

// Package distributor writes issued certificate bundles to target hosts
// with the mandated file modes, atomically per file.
package distributor

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"github.com/quartzlabs/certfleet"
	"github.com/quartzlabs/certfleet/errors"
	"github.com/quartzlabs/certfleet/target"
)

const (
	// CertMode applies to the certificate, CA and chain files.
	CertMode fs.FileMode = 0o644
	// KeyMode restricts the private key to its owner. Never relaxed.
	KeyMode fs.FileMode = 0o600

	dirMode fs.FileMode = 0o755
)

type artifact struct {
	name string
	path string
	data []byte
	mode fs.FileMode
}

type distributor struct {
	dialer target.Dialer
	owner  string
	group  string
	logger *slog.Logger
}

// New returns a Distributor writing through the given target dialer.
// Owner and group, when non-empty, are applied to every artifact.
func New(dialer target.Dialer, owner, group string, logger *slog.Logger) certfleet.Distributor {
	return &distributor{
		dialer: dialer,
		owner:  owner,
		group:  group,
		logger: logger,
	}
}

// Distribute writes the four bundle artifacts to the host. A failure
// after the first artifact has been written is surfaced as a partial
// distribution so the orchestrator never records the host as done.
func (d *distributor) Distribute(ctx context.Context, host certfleet.Host, bundle certfleet.CertificateBundle, paths certfleet.FilePaths) error {
	tgt, err := d.dialer.Dial(ctx, host)
	if err != nil {
		return fmt.Errorf("failed to reach host %s: %w", host.Hostname, err)
	}
	defer tgt.Close()

	artifacts := []artifact{
		{name: "certificate", path: paths.Certificate, data: bundle.Certificate, mode: CertMode},
		{name: "private key", path: paths.PrivateKey, data: bundle.PrivateKey, mode: KeyMode},
		{name: "ca", path: paths.CA, data: bundle.CA, mode: CertMode},
		{name: "chain", path: paths.Chain, data: bundle.Chain, mode: CertMode},
	}

	for _, a := range artifacts {
		if err := tgt.MkdirAll(ctx, path.Dir(a.path), dirMode); err != nil {
			return fmt.Errorf("failed to create directory for %s on %s: %w", a.name, host.Hostname, err)
		}
	}

	written := 0
	for _, a := range artifacts {
		if err := tgt.WriteFile(ctx, a.path, a.data, a.mode); err != nil {
			err = fmt.Errorf("failed to write %s to %s on %s: %w", a.name, a.path, host.Hostname, err)
			if written > 0 {
				return errors.Wrap(errors.ErrPartialDistribution, err)
			}
			return err
		}
		if err := tgt.Chown(ctx, a.path, d.owner, d.group); err != nil {
			err = fmt.Errorf("failed to set ownership of %s on %s: %w", a.path, host.Hostname, err)
			return errors.Wrap(errors.ErrPartialDistribution, err)
		}
		written++
	}

	d.logger.Info("distributed certificate bundle",
		"hostname", host.Hostname,
		"serial", bundle.SerialNumber,
	)

	return nil
}
