// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package certfleet

import "time"

const day = 24 * time.Hour

// DaysUntilExpiry returns floor((notAfter - now) / 1 day). Negative when
// the certificate is expired, so an expiry earlier today already counts
// as a full day overdue.
func DaysUntilExpiry(notAfter, now time.Time) int {
	d := notAfter.Sub(now)
	days := int(d / day)
	if d < 0 && d%day != 0 {
		days--
	}
	return days
}

// StatusFor classifies remaining validity against the two ordered policy
// thresholds. Expired dominates every other classification.
func StatusFor(daysUntilExpiry int, p Policy) Status {
	switch {
	case daysUntilExpiry < 0:
		return StatusExpired
	case daysUntilExpiry <= p.CriticalDays:
		return StatusCritical
	case daysUntilExpiry <= p.WarningDays:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// Decide computes the renewal decision for a host. A host with no record
// is always provisioned; otherwise renewal is due once the remaining
// validity in whole days drops to the policy threshold. Pure function,
// testable against fixed clocks.
func Decide(record *CertificateRecord, p Policy, now time.Time) bool {
	if record == nil {
		return true
	}
	return DaysUntilExpiry(record.NotAfter, now) <= p.RenewalThresholdDays
}

// Classify refreshes the derived fields of a record in place: expiry
// arithmetic, status, renewal decision and scan time.
func Classify(record *CertificateRecord, p Policy, now time.Time) {
	record.DaysUntilExpiry = DaysUntilExpiry(record.NotAfter, now)
	record.Status = StatusFor(record.DaysUntilExpiry, p)
	record.RenewalNeeded = Decide(record, p, now)
	record.LastScanned = now
}
