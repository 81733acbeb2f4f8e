// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

// Package report renders the fleet certificate inventory for operators:
// per-host detail plus aggregate counts per status.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/quartzlabs/certfleet"
)

// Report is the operator-facing view of the inventory at one instant.
type Report struct {
	GeneratedAt time.Time                     `json:"generated_at"`
	Total       int                           `json:"total"`
	ByStatus    map[string]int                `json:"by_status"`
	Hosts       []certfleet.CertificateRecord `json:"hosts"`
}

// Build reads the whole inventory and reclassifies every record against
// the policy at the current clock.
func Build(ctx context.Context, svc certfleet.Service, policy certfleet.Policy) (Report, error) {
	records, err := svc.ListInventory(ctx)
	if err != nil {
		return Report{}, err
	}

	now := time.Now().UTC()
	rep := Report{
		GeneratedAt: now,
		ByStatus: map[string]int{
			certfleet.StatusHealthy.String():  0,
			certfleet.StatusWarning.String():  0,
			certfleet.StatusCritical.String(): 0,
			certfleet.StatusExpired.String():  0,
		},
	}

	for i := range records {
		records[i].DaysUntilExpiry = certfleet.DaysUntilExpiry(records[i].NotAfter, now)
		records[i].Status = certfleet.StatusFor(records[i].DaysUntilExpiry, policy)
		rep.ByStatus[records[i].Status.String()]++
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].DaysUntilExpiry < records[j].DaysUntilExpiry
	})

	rep.Hosts = records
	rep.Total = len(records)

	return rep, nil
}

// JSON renders the machine-readable export.
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Text renders the human-readable table, most urgent hosts first.
func (r Report) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Certificate inventory report, generated %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Total: %d  healthy: %d  warning: %d  critical: %d  expired: %d\n\n",
		r.Total,
		r.ByStatus[certfleet.StatusHealthy.String()],
		r.ByStatus[certfleet.StatusWarning.String()],
		r.ByStatus[certfleet.StatusCritical.String()],
		r.ByStatus[certfleet.StatusExpired.String()],
	)

	w := tabwriter.NewWriter(&b, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "HOSTNAME\tCOMMON NAME\tSERIAL\tEXPIRES\tDAYS LEFT\tSTATUS\tRENEWAL")
	for _, rec := range r.Hosts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%t\n",
			rec.Hostname,
			rec.CommonName,
			shortSerial(rec.SerialNumber),
			rec.NotAfter.Format("2006-01-02"),
			rec.DaysUntilExpiry,
			rec.Status,
			rec.RenewalNeeded,
		)
	}
	w.Flush()

	return b.String()
}

func shortSerial(serial string) string {
	if len(serial) > 17 {
		return serial[:17]
	}
	return serial
}
