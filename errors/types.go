// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package errors

var (
	// ErrAuthFailure indicates the authority rejected the role and secret
	// credentials or could not be reached for login. Fatal for the run.
	ErrAuthFailure = New("failed to authenticate to the authority")

	// ErrAuthorityUnreachable indicates a transport failure talking to
	// the authority. Retried with backoff, then fatal for the host.
	ErrAuthorityUnreachable = New("authority unreachable")

	// ErrIssuanceDenied indicates the authority's policy rejected the
	// issuance request. Not retryable.
	ErrIssuanceDenied = New("issuance denied by authority policy")

	// ErrCorruptCertificate indicates a certificate file exists on the
	// host but cannot be parsed. The host is treated as needing renewal.
	ErrCorruptCertificate = New("existing certificate cannot be parsed")

	// ErrPartialDistribution indicates some bundle artifacts were written
	// before a failure. Authority and host state are now inconsistent.
	ErrPartialDistribution = New("partial distribution of certificate bundle")

	// ErrInventoryWriteFailure indicates the inventory upsert failed
	// after a successful issuance and distribution.
	ErrInventoryWriteFailure = New("failed to write inventory record")

	// ErrRecordNotFound indicates the authority holds no inventory record
	// for the requested hostname.
	ErrRecordNotFound = New("inventory record not found")
)
