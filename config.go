// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package certfleet

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

const (
	defRenewalThresholdDays = 5
	defWarningDays          = 30
	defCriticalDays         = 7
	defCertificateTTL       = "2160h"
	defCertDir              = "/etc/pki/fleet"
	defKeyDir               = "/etc/pki/fleet/private"
)

// FleetConfig is the per-run description of the fleet: the policy and
// the hosts it applies to.
type FleetConfig struct {
	Policy Policy `yaml:"policy"`
	Hosts  []Host `yaml:"hosts"`
}

// LoadFleetConfig reads and validates the fleet YAML file, applying
// policy defaults for omitted fields.
func LoadFleetConfig(filename string) (FleetConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return FleetConfig{}, err
	}
	defer file.Close()

	config := FleetConfig{
		Policy: Policy{
			RenewalThresholdDays: defRenewalThresholdDays,
			WarningDays:          defWarningDays,
			CriticalDays:         defCriticalDays,
			CertificateTTL:       defCertificateTTL,
			CertDir:              defCertDir,
			KeyDir:               defKeyDir,
		},
	}
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return FleetConfig{}, fmt.Errorf("failed to parse fleet config %s: %w", filename, err)
	}

	if err := config.Policy.Validate(); err != nil {
		return FleetConfig{}, err
	}

	for i, host := range config.Hosts {
		if host.Hostname == "" {
			return FleetConfig{}, fmt.Errorf("host entry %d has no hostname", i)
		}
		if host.FQDN == "" {
			config.Hosts[i].FQDN = host.Hostname
		}
	}

	return config, nil
}
