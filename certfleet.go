// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

// Package certfleet contains the domain model and service contract for
// fleet-wide certificate lifecycle orchestration against an OpenBao
// authority: discovery, renewal decisions, issuance, distribution and
// inventory reconciliation.
package certfleet

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"
)

// Status classifies a certificate by its remaining validity. The numeric
// values are part of the exporter contract: healthy=0, warning=1,
// critical=2, expired=3.
type Status uint8

const (
	StatusHealthy Status = iota
	StatusWarning
	StatusCritical
	StatusExpired
)

const statusUnknown = "unknown"

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	case StatusExpired:
		return "expired"
	}
	return statusUnknown
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus converts the wire representation back to a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(s) {
	case "healthy":
		return StatusHealthy, nil
	case "warning":
		return StatusWarning, nil
	case "critical":
		return StatusCritical, nil
	case "expired":
		return StatusExpired, nil
	}
	return StatusHealthy, fmt.Errorf("unknown certificate status %q", s)
}

// FilePaths holds the four artifact locations on a target host.
type FilePaths struct {
	Certificate string `json:"certificate" yaml:"certificate" mapstructure:"certificate"`
	PrivateKey  string `json:"private_key" yaml:"private_key" mapstructure:"private_key"`
	CA          string `json:"ca" yaml:"ca" mapstructure:"ca"`
	Chain       string `json:"chain" yaml:"chain" mapstructure:"chain"`
}

// CertificateRecord is one host's current certificate state. It is built
// in memory on every discovery pass and persisted as the single inventory
// entry for the host; the private key is never part of it.
type CertificateRecord struct {
	Hostname        string    `json:"hostname" mapstructure:"hostname"`
	FQDN            string    `json:"fqdn" mapstructure:"fqdn"`
	CommonName      string    `json:"common_name" mapstructure:"common_name"`
	SerialNumber    string    `json:"serial_number" mapstructure:"serial_number"`
	Issuer          string    `json:"issuer" mapstructure:"issuer"`
	NotBefore       time.Time `json:"not_before" mapstructure:"not_before"`
	NotAfter        time.Time `json:"not_after" mapstructure:"not_after"`
	DaysUntilExpiry int       `json:"days_until_expiry" mapstructure:"days_until_expiry"`
	Status          Status    `json:"status" mapstructure:"-"`
	RenewalNeeded   bool      `json:"renewal_needed" mapstructure:"renewal_needed"`
	LastScanned     time.Time `json:"last_scanned" mapstructure:"last_scanned"`
	FilePaths       FilePaths `json:"file_paths" mapstructure:"file_paths"`
}

// CertificateBundle is the authority's issuance response. It is held only
// for the duration of one issuance and distribution; the private key never
// reaches durable coordinator-side storage.
type CertificateBundle struct {
	Certificate  []byte    `json:"certificate"`
	PrivateKey   []byte    `json:"private_key"`
	CA           []byte    `json:"ca"`
	Chain        []byte    `json:"chain"`
	SerialNumber string    `json:"serial_number"`
	Expiration   time.Time `json:"expiration"`
}

// Policy is the orchestration configuration, immutable for one run.
// WarningDays must be greater than CriticalDays, which must not be
// negative. RenewalThresholdDays is independent from both.
type Policy struct {
	RenewalThresholdDays int    `json:"renewal_threshold_days" yaml:"renewal_threshold_days"`
	WarningDays          int    `json:"warning_days" yaml:"warning_days"`
	CriticalDays         int    `json:"critical_days" yaml:"critical_days"`
	CertificateTTL       string `json:"certificate_ttl" yaml:"certificate_ttl"`
	CertDir              string `json:"cert_dir" yaml:"cert_dir"`
	KeyDir               string `json:"key_dir" yaml:"key_dir"`
	Owner                string `json:"owner" yaml:"owner"`
	Group                string `json:"group" yaml:"group"`
}

// Validate checks the threshold ordering invariant.
func (p Policy) Validate() error {
	if p.CriticalDays < 0 {
		return fmt.Errorf("critical_days must not be negative, got %d", p.CriticalDays)
	}
	if p.WarningDays <= p.CriticalDays {
		return fmt.Errorf("warning_days (%d) must be greater than critical_days (%d)", p.WarningDays, p.CriticalDays)
	}
	if p.RenewalThresholdDays < 0 {
		return fmt.Errorf("renewal_threshold_days must not be negative, got %d", p.RenewalThresholdDays)
	}
	return nil
}

// PathsFor returns the fixed artifact layout for a host.
func (p Policy) PathsFor(fqdn string) FilePaths {
	return FilePaths{
		Certificate: path.Join(p.CertDir, fqdn+".crt"),
		PrivateKey:  path.Join(p.KeyDir, fqdn+".key"),
		CA:          path.Join(p.CertDir, fqdn+"-ca.crt"),
		Chain:       path.Join(p.CertDir, fqdn+"-chain.crt"),
	}
}

// Host identifies one fleet member. An empty Address means the host is
// reached through the local filesystem instead of SSH.
type Host struct {
	Hostname string `json:"hostname" yaml:"hostname"`
	FQDN     string `json:"fqdn" yaml:"fqdn"`
	Address  string `json:"address" yaml:"address"`
}

// Outcome is the terminal state of one host pipeline.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
	OutcomeAborted Outcome = "aborted"
)

// HostResult is the per-host entry of a run summary. Flagged marks
// outcomes that left authority and host state inconsistent and require
// operator follow-up.
type HostResult struct {
	Hostname string            `json:"hostname"`
	Outcome  Outcome           `json:"outcome"`
	Reason   string            `json:"reason,omitempty"`
	Flagged  bool              `json:"flagged,omitempty"`
	Record   CertificateRecord `json:"record,omitempty"`
}

// RunSummary enumerates the outcome of every host in one orchestration run.
type RunSummary struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Issued     int          `json:"issued"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Aborted    int          `json:"aborted"`
	Results    []HostResult `json:"results"`
}

// Service is the certificate lifecycle orchestration API.
type Service interface {
	// Run executes the full discovery, decision, issuance, distribution
	// and reconciliation pipeline for the given hosts.
	Run(ctx context.Context, hosts []Host) (RunSummary, error)

	// InspectHost performs discovery and classification for a single host
	// without issuing anything.
	InspectHost(ctx context.Context, host Host) (CertificateRecord, error)

	// RetrieveInventory returns the authority's stored record for a host.
	RetrieveInventory(ctx context.Context, hostname string) (CertificateRecord, error)

	// ListInventory returns the stored records of the whole fleet.
	ListInventory(ctx context.Context) ([]CertificateRecord, error)
}

// Inspector determines whether a certificate exists on a host and
// extracts its metadata. Absence is reported through the boolean, not an
// error. The inspector never mutates the host.
type Inspector interface {
	Inspect(ctx context.Context, host Host, certPath string) (CertificateRecord, bool, error)
}

// Distributor writes a certificate bundle to a target host with the
// mandated modes, atomically per file.
type Distributor interface {
	Distribute(ctx context.Context, host Host, bundle CertificateBundle, paths FilePaths) error
}

// Reconciler upserts the authority's inventory record for a host. It
// never deletes records.
type Reconciler interface {
	Reconcile(ctx context.Context, hostname string, record CertificateRecord) error
}
