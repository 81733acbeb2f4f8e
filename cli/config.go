// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"os"

	"github.com/pelletier/go-toml"
	"github.com/quartzlabs/certfleet/errors"
)

const (
	defAuthorityURL string = "http://localhost:8200"
	defPKIPath      string = "pki_int"
	defPKIRole      string = "fleet-hosts"
	defKVMount      string = "secret"
	defSSHUser      string = "root"
	defFleetPath    string = "./fleet.yaml"
)

type authority struct {
	URL       string `toml:"url"`
	AppRole   string `toml:"app_role"`
	AppSecret string `toml:"app_secret"`
	Namespace string `toml:"namespace"`
	PKIPath   string `toml:"pki_path"`
	PKIRole   string `toml:"pki_role"`
	KVMount   string `toml:"kv_mount"`
}

type transport struct {
	User           string `toml:"user"`
	PrivateKeyPath string `toml:"private_key_path"`
	KnownHostsPath string `toml:"known_hosts_path"`
	Insecure       bool   `toml:"insecure"`
}

type config struct {
	Authority authority `toml:"authority"`
	SSH       transport `toml:"ssh"`
	FleetPath string    `toml:"fleet_path"`
	RawOutput string    `toml:"raw_output"`
}

// Readable by all user groups but writeable by the user only.
const filePermission = 0o644

var (
	errReadFail       = errors.New("failed to read config file")
	errWritingConfig  = errors.New("error in writing the updated config to file")
	defaultConfigPath = "./certfleet.toml"
)

// Config carries the connection settings the CLI needs to talk to the
// authority and the fleet.
type Config struct {
	AuthorityURL string
	AppRole      string
	AppSecret    string
	Namespace    string
	PKIPath      string
	PKIRole      string
	KVMount      string

	SSHUser           string
	SSHPrivateKeyPath string
	SSHKnownHostsPath string
	SSHInsecure       bool
}

func read(file string) (config, error) {
	c := config{}
	data, err := os.Open(file)
	if err != nil {
		return c, errors.Wrap(errReadFail, err)
	}
	defer data.Close()

	buf, err := io.ReadAll(data)
	if err != nil {
		return c, errors.Wrap(errReadFail, err)
	}

	if err := toml.Unmarshal(buf, &c); err != nil {
		return config{}, err
	}

	return c, nil
}

// ParseConfig - parses the config file, creating it with defaults when it
// does not exist, and fills in every Config field a flag did not set.
func ParseConfig(conf Config) (Config, error) {
	if ConfigPath == "" {
		ConfigPath = defaultConfigPath
	}

	_, err := os.Stat(ConfigPath)
	switch {
	// If the file does not exist, create it with default values.
	case os.IsNotExist(err):
		defaultConfig := config{
			Authority: authority{
				URL:     defAuthorityURL,
				PKIPath: defPKIPath,
				PKIRole: defPKIRole,
				KVMount: defKVMount,
			},
			SSH: transport{
				User: defSSHUser,
			},
			FleetPath: defFleetPath,
			RawOutput: "false",
		}
		buf, err := toml.Marshal(defaultConfig)
		if err != nil {
			return conf, err
		}
		if err = os.WriteFile(ConfigPath, buf, filePermission); err != nil {
			return conf, errors.Wrap(errWritingConfig, err)
		}
	case err != nil:
		return conf, err
	}

	config, err := read(ConfigPath)
	if err != nil {
		return conf, err
	}

	if conf.AuthorityURL == "" && config.Authority.URL != "" {
		conf.AuthorityURL = config.Authority.URL
	}
	if conf.AppRole == "" {
		conf.AppRole = config.Authority.AppRole
	}
	if conf.AppSecret == "" {
		conf.AppSecret = config.Authority.AppSecret
	}
	if conf.Namespace == "" {
		conf.Namespace = config.Authority.Namespace
	}
	if conf.PKIPath == "" && config.Authority.PKIPath != "" {
		conf.PKIPath = config.Authority.PKIPath
	}
	if conf.PKIRole == "" && config.Authority.PKIRole != "" {
		conf.PKIRole = config.Authority.PKIRole
	}
	if conf.KVMount == "" && config.Authority.KVMount != "" {
		conf.KVMount = config.Authority.KVMount
	}

	if conf.SSHUser == "" && config.SSH.User != "" {
		conf.SSHUser = config.SSH.User
	}
	if conf.SSHPrivateKeyPath == "" {
		conf.SSHPrivateKeyPath = config.SSH.PrivateKeyPath
	}
	if conf.SSHKnownHostsPath == "" {
		conf.SSHKnownHostsPath = config.SSH.KnownHostsPath
	}
	conf.SSHInsecure = config.SSH.Insecure || conf.SSHInsecure

	if FleetPath == "" && config.FleetPath != "" {
		FleetPath = config.FleetPath
	}
	if FleetPath == "" {
		FleetPath = defFleetPath
	}

	if config.RawOutput != "" {
		// check for config file value or flag input value is true
		RawOutput = config.RawOutput == "true" || RawOutput
	}

	return conf, nil
}
