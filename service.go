// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package certfleet

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"time"

	"github.com/quartzlabs/certfleet/errors"
	"github.com/quartzlabs/certfleet/internal/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 5

type orchestrator struct {
	authority   Authority
	inspector   Inspector
	distributor Distributor
	reconciler  Reconciler
	policy      Policy
	workers     int
	idp         uuid.IDProvider
	logger      *slog.Logger
}

var _ Service = (*orchestrator)(nil)

// NewService returns the certificate lifecycle orchestration service.
// Workers bounds the number of hosts processed concurrently; zero or
// negative selects the default.
func NewService(authority Authority, inspector Inspector, distributor Distributor, reconciler Reconciler, policy Policy, workers int, idp uuid.IDProvider, logger *slog.Logger) (Service, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = defaultWorkers
	}

	return &orchestrator{
		authority:   authority,
		inspector:   inspector,
		distributor: distributor,
		reconciler:  reconciler,
		policy:      policy,
		workers:     workers,
		idp:         idp,
		logger:      logger,
	}, nil
}

// Run processes every host through the pipeline. Hosts are independent:
// one host's failure never blocks the others. An authentication failure
// is the single run-fatal condition, since no host can proceed without
// the shared token.
func (s *orchestrator) Run(ctx context.Context, hosts []Host) (RunSummary, error) {
	runID, err := s.idp.ID()
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
	}

	if err := s.authority.Authenticate(ctx); err != nil {
		return RunSummary{}, errors.Wrap(errors.ErrAuthFailure, err)
	}

	results := make([]HostResult, len(hosts))

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i, host := range hosts {
		g.Go(func() error {
			// A run-level cancellation stops hosts that have not started;
			// hosts already in flight run to a terminal state.
			if ctx.Err() != nil {
				results[i] = HostResult{
					Hostname: host.Hostname,
					Outcome:  OutcomeAborted,
					Reason:   "run cancelled before processing started",
				}
				return nil
			}
			results[i] = s.processHost(ctx, host)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RunSummary{}, err
	}

	summary.Results = results
	summary.FinishedAt = time.Now().UTC()
	for _, res := range results {
		switch res.Outcome {
		case OutcomeDone:
			summary.Issued++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeFailed:
			summary.Failed++
		case OutcomeAborted:
			summary.Aborted++
		}
	}

	s.logger.Info("orchestration run finished",
		"run_id", summary.RunID,
		"hosts", len(hosts),
		"issued", summary.Issued,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"aborted", summary.Aborted,
	)

	return summary, nil
}

// processHost drives one host through
// Deciding -> {Skipped | Issuing -> Distributing -> Reconciling -> Done}
// with every transition strictly sequential.
func (s *orchestrator) processHost(ctx context.Context, host Host) HostResult {
	now := time.Now().UTC()
	paths := s.policy.PathsFor(host.FQDN)

	record, found, err := s.inspector.Inspect(ctx, host, paths.Certificate)
	corrupt := false
	switch {
	case err == nil:
	case errors.Contains(err, errors.ErrCorruptCertificate):
		// Conservatively reissue; the unparseable file will be replaced.
		corrupt = true
		s.logger.Warn("existing certificate is corrupt, forcing renewal",
			"hostname", host.Hostname, "error", err)
	default:
		return HostResult{
			Hostname: host.Hostname,
			Outcome:  OutcomeFailed,
			Reason:   fmt.Sprintf("inspection failed: %s", err),
		}
	}

	var existing *CertificateRecord
	if found && !corrupt {
		existing = &record
	}

	if !corrupt && !Decide(existing, s.policy, now) {
		record.FilePaths = paths
		Classify(&record, s.policy, now)
		result := HostResult{
			Hostname: host.Hostname,
			Outcome:  OutcomeSkipped,
			Record:   record,
		}
		// Healthy hosts still get their inventory entry refreshed so
		// last_scanned and days_until_expiry stay accurate downstream.
		if err := s.reconciler.Reconcile(ctx, host.Hostname, record); err != nil {
			result.Flagged = true
			result.Reason = fmt.Sprintf("inventory refresh failed: %s", err)
		}
		return result
	}

	bundle, err := s.authority.Issue(ctx, host.FQDN, s.policy.CertificateTTL)
	if err != nil {
		return HostResult{
			Hostname: host.Hostname,
			Outcome:  OutcomeFailed,
			Reason:   fmt.Sprintf("issuance failed: %s", err),
		}
	}

	if err := s.distributor.Distribute(ctx, host, bundle, paths); err != nil {
		// The authority now holds a certificate that never reached the
		// host. The stale inventory record is kept as-is rather than
		// claiming a delivery that did not complete.
		s.logger.Error("certificate issued but not delivered",
			"hostname", host.Hostname,
			"serial", bundle.SerialNumber,
			"error", err,
		)
		return HostResult{
			Hostname: host.Hostname,
			Outcome:  OutcomeFailed,
			Flagged:  true,
			Reason:   fmt.Sprintf("distribution failed: %s", err),
		}
	}

	newRecord := recordFromBundle(host, bundle, paths)
	Classify(&newRecord, s.policy, now)

	result := HostResult{
		Hostname: host.Hostname,
		Outcome:  OutcomeDone,
		Record:   newRecord,
	}
	if err := s.reconciler.Reconcile(ctx, host.Hostname, newRecord); err != nil {
		// The bundle is live on the host; a stale inventory entry is the
		// lesser failure and is flagged for operator follow-up.
		result.Flagged = true
		result.Reason = fmt.Sprintf("inventory update failed: %s", err)
	}

	return result
}

func (s *orchestrator) InspectHost(ctx context.Context, host Host) (CertificateRecord, error) {
	now := time.Now().UTC()
	paths := s.policy.PathsFor(host.FQDN)

	record, found, err := s.inspector.Inspect(ctx, host, paths.Certificate)
	if err != nil {
		return CertificateRecord{}, err
	}
	if !found {
		return CertificateRecord{}, errors.Wrap(errors.ErrRecordNotFound,
			fmt.Errorf("no certificate at %s on %s", paths.Certificate, host.Hostname))
	}

	record.FilePaths = paths
	Classify(&record, s.policy, now)

	return record, nil
}

func (s *orchestrator) RetrieveInventory(ctx context.Context, hostname string) (CertificateRecord, error) {
	record, found, err := s.authority.ReadInventory(ctx, hostname)
	if err != nil {
		return CertificateRecord{}, err
	}
	if !found {
		return CertificateRecord{}, errors.Wrap(errors.ErrRecordNotFound, fmt.Errorf("hostname %s", hostname))
	}
	return record, nil
}

func (s *orchestrator) ListInventory(ctx context.Context) ([]CertificateRecord, error) {
	hostnames, err := s.authority.ListInventory(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]CertificateRecord, 0, len(hostnames))
	for _, hostname := range hostnames {
		record, found, err := s.authority.ReadInventory(ctx, hostname)
		if err != nil {
			s.logger.Warn("failed to read inventory record", "hostname", hostname, "error", err)
			continue
		}
		if !found {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// recordFromBundle derives the inventory entry for a freshly issued
// bundle. Metadata comes from the leaf certificate itself; the authority
// response fields are the fallback.
func recordFromBundle(host Host, bundle CertificateBundle, paths FilePaths) CertificateRecord {
	record := CertificateRecord{
		Hostname:     host.Hostname,
		FQDN:         host.FQDN,
		CommonName:   host.FQDN,
		SerialNumber: bundle.SerialNumber,
		NotAfter:     bundle.Expiration,
		FilePaths:    paths,
	}

	if block, _ := pem.Decode(bundle.Certificate); block != nil {
		if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
			record.CommonName = cert.Subject.CommonName
			record.Issuer = cert.Issuer.CommonName
			record.NotBefore = cert.NotBefore
			record.NotAfter = cert.NotAfter
		}
	}

	return record
}
