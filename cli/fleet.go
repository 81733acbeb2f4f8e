// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/quartzlabs/certfleet"
	"github.com/quartzlabs/certfleet/report"
	"github.com/spf13/cobra"
)

// Keep service handle and fleet description in global vars.
var (
	svc   certfleet.Service
	fleet certfleet.FleetConfig
)

func SetService(s certfleet.Service) {
	svc = s
}

func SetFleet(fc certfleet.FleetConfig) {
	fleet = fc
}

var cmdFleet = []cobra.Command{
	{
		Use:   "run",
		Short: "Run orchestration",
		Long:  `Runs the discovery, renewal-decision, issuance and distribution pipeline over every fleet host.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			summary, err := svc.Run(cmd.Context(), fleet.Hosts)
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logJSONCmd(*cmd, summary)
		},
	},
	{
		Use:   "inspect <hostname>",
		Short: "Inspect host certificate",
		Long:  `Reads and classifies the certificate currently deployed on a fleet host, without issuing anything.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			host, err := fleetHost(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			record, err := svc.InspectHost(cmd.Context(), host)
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logJSONCmd(*cmd, record)
		},
	},
	{
		Use:   "inventory [all | <hostname>]",
		Short: "Get inventory records",
		Long:  `Gets the authority's stored inventory record for a hostname, or the records of the whole fleet.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			if args[0] == "all" {
				records, err := svc.ListInventory(cmd.Context())
				if err != nil {
					logErrorCmd(*cmd, err)
					return
				}
				logJSONCmd(*cmd, records)
				return
			}
			record, err := svc.RetrieveInventory(cmd.Context(), args[0])
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			logJSONCmd(*cmd, record)
		},
	},
	{
		Use:   "report [text | json]",
		Short: "Render inventory report",
		Long:  `Renders the fleet inventory as a human-readable table or a JSON export, most urgent hosts first.`,
		Run: func(cmd *cobra.Command, args []string) {
			format := "text"
			if len(args) == 1 {
				format = args[0]
			}
			if len(args) > 1 || (format != "text" && format != "json") {
				logUsageCmd(*cmd, cmd.Use)
				return
			}

			rep, err := report.Build(cmd.Context(), svc, fleet.Policy)
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			if format == "json" {
				logJSONCmd(*cmd, rep)
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), rep.Text())
		},
	},
}

// NewFleetCmd returns fleet command.
func NewFleetCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "fleet [run | inspect | inventory | report]",
		Short: "Fleet certificate management",
		Long:  `Fleet certificate management: run orchestration, inspect hosts, get inventory records, render reports.`,
	}

	for i := range cmdFleet {
		cmd.AddCommand(&cmdFleet[i])
	}

	return &cmd
}

func fleetHost(hostname string) (certfleet.Host, error) {
	for _, host := range fleet.Hosts {
		if host.Hostname == hostname {
			return host, nil
		}
	}
	return certfleet.Host{}, fmt.Errorf("hostname %s is not in the fleet file %s", hostname, FleetPath)
}
