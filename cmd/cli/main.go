// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

// Package main contains cli main function to run the cli.
package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/quartzlabs/certfleet"
	"github.com/quartzlabs/certfleet/cli"
	"github.com/quartzlabs/certfleet/distributor"
	"github.com/quartzlabs/certfleet/inspector"
	"github.com/quartzlabs/certfleet/internal/uuid"
	"github.com/quartzlabs/certfleet/inventory"
	"github.com/quartzlabs/certfleet/pki"
	"github.com/quartzlabs/certfleet/target"
	"github.com/spf13/cobra"
)

const sshTimeout = 30 * time.Second

func main() {
	conf := cli.Config{}

	// Root
	rootCmd := &cobra.Command{
		Use: "certfleet-cli",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			cliConf, err := cli.ParseConfig(conf)
			if err != nil {
				log.Fatalf("Failed to parse config: %s", err)
			}
			fleetConf, err := certfleet.LoadFleetConfig(cli.FleetPath)
			if err != nil {
				log.Fatalf("Failed to load fleet file %s: %s", cli.FleetPath, err)
			}
			svc, err := newService(cliConf, fleetConf)
			if err != nil {
				log.Fatalf("Failed to create service: %s", err)
			}
			cli.SetFleet(fleetConf)
			cli.SetService(svc)
		},
	}

	// API commands
	fleetCmd := cli.NewFleetCmd()

	// Root Commands
	rootCmd.AddCommand(fleetCmd)

	rootCmd.PersistentFlags().StringVarP(
		&conf.AuthorityURL,
		"authority-url",
		"a",
		conf.AuthorityURL,
		"Authority (OpenBao) URL",
	)

	rootCmd.PersistentFlags().StringVarP(
		&conf.AppRole,
		"app-role",
		"R",
		conf.AppRole,
		"AppRole role ID",
	)

	rootCmd.PersistentFlags().StringVarP(
		&conf.AppSecret,
		"app-secret",
		"S",
		conf.AppSecret,
		"AppRole secret ID",
	)

	rootCmd.PersistentFlags().StringVarP(
		&conf.Namespace,
		"namespace",
		"n",
		conf.Namespace,
		"Authority namespace",
	)

	rootCmd.PersistentFlags().StringVarP(
		&conf.PKIPath,
		"pki-path",
		"p",
		conf.PKIPath,
		"PKI secrets engine mount path",
	)

	rootCmd.PersistentFlags().StringVarP(
		&conf.PKIRole,
		"pki-role",
		"e",
		conf.PKIRole,
		"PKI issuance role",
	)

	rootCmd.PersistentFlags().StringVarP(
		&conf.KVMount,
		"kv-mount",
		"k",
		conf.KVMount,
		"KV v2 inventory mount path",
	)

	rootCmd.PersistentFlags().StringVarP(
		&conf.SSHUser,
		"ssh-user",
		"u",
		conf.SSHUser,
		"SSH user for fleet hosts",
	)

	rootCmd.PersistentFlags().StringVarP(
		&conf.SSHPrivateKeyPath,
		"ssh-key",
		"K",
		conf.SSHPrivateKeyPath,
		"SSH private key path",
	)

	rootCmd.PersistentFlags().StringVarP(
		&conf.SSHKnownHostsPath,
		"known-hosts",
		"H",
		conf.SSHKnownHostsPath,
		"SSH known hosts path",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&conf.SSHInsecure,
		"insecure",
		"i",
		conf.SSHInsecure,
		"Do not verify SSH host keys",
	)

	rootCmd.PersistentFlags().StringVarP(
		&cli.ConfigPath,
		"config",
		"c",
		cli.ConfigPath,
		"Config path",
	)

	rootCmd.PersistentFlags().StringVarP(
		&cli.FleetPath,
		"fleet",
		"f",
		cli.FleetPath,
		"Fleet file path",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&cli.RawOutput,
		"raw",
		"r",
		cli.RawOutput,
		"Enables raw output mode for easier parsing of output",
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func newService(conf cli.Config, fleetConf certfleet.FleetConfig) (certfleet.Service, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	authority, err := pki.NewAuthority(conf.AppRole, conf.AppSecret, conf.AuthorityURL, conf.Namespace,
		conf.PKIPath, conf.PKIRole, conf.KVMount, pki.DefaultRetryPolicy(), logger)
	if err != nil {
		return nil, err
	}

	dialer, err := newDialer(conf, fleetConf.Hosts)
	if err != nil {
		return nil, err
	}

	insp := inspector.New(dialer, logger)
	dist := distributor.New(dialer, fleetConf.Policy.Owner, fleetConf.Policy.Group, logger)
	rec := inventory.New(authority, logger)

	return certfleet.NewService(authority, insp, dist, rec, fleetConf.Policy, 0, uuid.New(), logger)
}

// newDialer picks the transport from the fleet file: SSH when at least
// one host carries an address, the local filesystem otherwise.
func newDialer(conf cli.Config, hosts []certfleet.Host) (target.Dialer, error) {
	remote := false
	for _, host := range hosts {
		if host.Address != "" {
			remote = true
			break
		}
	}
	if !remote {
		return target.NewLocalDialer(), nil
	}

	return target.NewSSHDialer(target.SSHConfig{
		User:                  conf.SSHUser,
		PrivateKeyPath:        conf.SSHPrivateKeyPath,
		KnownHostsPath:        conf.SSHKnownHostsPath,
		Timeout:               sshTimeout,
		InsecureIgnoreHostKey: conf.SSHInsecure,
	})
}
