// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package certfleet

import "context"

// Authority represents the certificate-issuing and inventory-storage
// service that all authority-backed implementations must satisfy. The
// coordinator holds the authority credentials; target hosts only ever
// receive issued material.
type Authority interface {
	// Authenticate exchanges the configured role and secret identifiers
	// for a bearer token. The token is shared by all subsequent calls and
	// refreshed transparently when it expires.
	Authenticate(ctx context.Context) error

	// Issue requests a new leaf certificate bundle for the common name.
	Issue(ctx context.Context, commonName, ttl string) (CertificateBundle, error)

	// ReadInventory returns the stored record for a hostname. Absence is
	// reported through the boolean, not an error.
	ReadInventory(ctx context.Context, hostname string) (CertificateRecord, bool, error)

	// WriteInventory upserts the single record held for a hostname. It is
	// safe to call redundantly.
	WriteInventory(ctx context.Context, hostname string, record CertificateRecord) error

	// ListInventory returns all hostnames with a stored record.
	ListInventory(ctx context.Context) ([]string, error)

	// Health probes the authority. Both the active and the standby leader
	// response codes of a clustered deployment are healthy.
	Health(ctx context.Context) error
}
