// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package distributor_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quartzlabs/certfleet"
	"github.com/quartzlabs/certfleet/distributor"
	"github.com/quartzlabs/certfleet/errors"
	"github.com/quartzlabs/certfleet/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHost = certfleet.Host{
	Hostname: "web-01",
	FQDN:     "web-01.example.com",
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBundle() certfleet.CertificateBundle {
	return certfleet.CertificateBundle{
		Certificate:  []byte("leaf-pem"),
		PrivateKey:   []byte("key-pem"),
		CA:           []byte("ca-pem"),
		Chain:        []byte("chain-pem"),
		SerialNumber: "20:f4:bd:43:2c:c7:06:82",
		Expiration:   time.Now().Add(90 * 24 * time.Hour),
	}
}

func testPaths(dir string) certfleet.FilePaths {
	return certfleet.FilePaths{
		Certificate: filepath.Join(dir, "certs", "web-01.example.com.crt"),
		PrivateKey:  filepath.Join(dir, "private", "web-01.example.com.key"),
		CA:          filepath.Join(dir, "certs", "web-01.example.com-ca.crt"),
		Chain:       filepath.Join(dir, "certs", "web-01.example.com-chain.crt"),
	}
}

func TestDistribute(t *testing.T) {
	dir := t.TempDir()
	paths := testPaths(dir)
	bundle := testBundle()

	dist := distributor.New(target.NewLocalDialer(), "", "", testLogger())
	require.NoError(t, dist.Distribute(context.Background(), testHost, bundle, paths))

	testCases := []struct {
		desc string
		path string
		data []byte
		mode os.FileMode
	}{
		{
			desc: "certificate is world readable",
			path: paths.Certificate,
			data: bundle.Certificate,
			mode: distributor.CertMode,
		},
		{
			desc: "private key is owner only",
			path: paths.PrivateKey,
			data: bundle.PrivateKey,
			mode: distributor.KeyMode,
		},
		{
			desc: "ca is world readable",
			path: paths.CA,
			data: bundle.CA,
			mode: distributor.CertMode,
		},
		{
			desc: "chain is world readable",
			path: paths.Chain,
			data: bundle.Chain,
			mode: distributor.CertMode,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			info, err := os.Stat(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.mode, info.Mode().Perm())

			data, err := os.ReadFile(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.data, data)
		})
	}
}

func TestDistributeOverwrite(t *testing.T) {
	dir := t.TempDir()
	paths := testPaths(dir)
	bundle := testBundle()

	dist := distributor.New(target.NewLocalDialer(), "", "", testLogger())
	require.NoError(t, dist.Distribute(context.Background(), testHost, bundle, paths))

	renewed := bundle
	renewed.Certificate = []byte("renewed-leaf-pem")
	require.NoError(t, dist.Distribute(context.Background(), testHost, renewed, paths))

	data, err := os.ReadFile(paths.Certificate)
	require.NoError(t, err)
	assert.Equal(t, renewed.Certificate, data)
}

func TestDistributePartialFailure(t *testing.T) {
	dir := t.TempDir()
	paths := testPaths(dir)

	// A directory squatting on the CA path makes the third write fail
	// after the certificate and key are already in place.
	require.NoError(t, os.MkdirAll(paths.CA, 0o755))

	dist := distributor.New(target.NewLocalDialer(), "", "", testLogger())
	err := dist.Distribute(context.Background(), testHost, testBundle(), paths)
	require.True(t, errors.Contains(err, errors.ErrPartialDistribution), "expected error %v, got %v", errors.ErrPartialDistribution, err)

	// The artifacts written before the failure stay on disk.
	_, err = os.Stat(paths.Certificate)
	assert.NoError(t, err)
	_, err = os.Stat(paths.PrivateKey)
	assert.NoError(t, err)
}

func TestDistributeFirstArtifactFailure(t *testing.T) {
	dir := t.TempDir()
	paths := testPaths(dir)

	require.NoError(t, os.MkdirAll(paths.Certificate, 0o755))

	dist := distributor.New(target.NewLocalDialer(), "", "", testLogger())
	err := dist.Distribute(context.Background(), testHost, testBundle(), paths)
	require.Error(t, err)

	// Nothing was written, so the failure is not a partial distribution.
	assert.False(t, errors.Contains(err, errors.ErrPartialDistribution))
}
