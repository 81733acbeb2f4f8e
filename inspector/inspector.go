// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

// Package inspector discovers existing certificates on fleet members and
// extracts their x509 metadata. It never mutates a host.
package inspector

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/quartzlabs/certfleet"
	"github.com/quartzlabs/certfleet/errors"
	"github.com/quartzlabs/certfleet/target"
)

type inspector struct {
	dialer target.Dialer
	logger *slog.Logger
}

// New returns an Inspector that reads certificate files through the
// given target dialer.
func New(dialer target.Dialer, logger *slog.Logger) certfleet.Inspector {
	return &inspector{
		dialer: dialer,
		logger: logger,
	}
}

// Inspect reads the certificate at certPath on the host. A missing file
// is the expected never-issued case and is reported through the boolean.
// An unparseable file is reported as a corrupt certificate error.
func (i *inspector) Inspect(ctx context.Context, host certfleet.Host, certPath string) (certfleet.CertificateRecord, bool, error) {
	tgt, err := i.dialer.Dial(ctx, host)
	if err != nil {
		return certfleet.CertificateRecord{}, false, fmt.Errorf("failed to reach host %s: %w", host.Hostname, err)
	}
	defer tgt.Close()

	data, err := tgt.ReadFile(ctx, certPath)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return certfleet.CertificateRecord{}, false, nil
		}
		return certfleet.CertificateRecord{}, false, fmt.Errorf("failed to read %s on %s: %w", certPath, host.Hostname, err)
	}

	cert, err := parseCertificate(data)
	if err != nil {
		return certfleet.CertificateRecord{}, false, errors.Wrap(errors.ErrCorruptCertificate, err)
	}

	record := certfleet.CertificateRecord{
		Hostname:     host.Hostname,
		FQDN:         host.FQDN,
		CommonName:   cert.Subject.CommonName,
		SerialNumber: formatSerial(cert.SerialNumber.Bytes()),
		Issuer:       cert.Issuer.CommonName,
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
	}

	i.logger.Debug("inspected certificate",
		"hostname", host.Hostname,
		"serial", record.SerialNumber,
		"not_after", record.NotAfter,
	)

	return record, true, nil
}

func parseCertificate(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM certificate")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse X509 certificate: %w", err)
	}

	return cert, nil
}

// formatSerial renders serial bytes in the authority's colon-separated
// hex form so inspected and issued serials compare equal.
func formatSerial(raw []byte) string {
	parts := make([]string, 0, len(raw))
	for _, b := range raw {
		parts = append(parts, fmt.Sprintf("%02x", b))
	}
	return strings.Join(parts, ":")
}
