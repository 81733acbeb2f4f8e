// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package report_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/quartzlabs/certfleet"
	"github.com/quartzlabs/certfleet/errors"
	"github.com/quartzlabs/certfleet/internal/uuid"
	"github.com/quartzlabs/certfleet/mocks"
	"github.com/quartzlabs/certfleet/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testPolicy = certfleet.Policy{
	RenewalThresholdDays: 5,
	WarningDays:          30,
	CriticalDays:         7,
	CertificateTTL:       "2160h",
	CertDir:              "/etc/pki/fleet",
	KeyDir:               "/etc/pki/fleet/private",
}

func testService(t *testing.T, authority certfleet.Authority) certfleet.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := certfleet.NewService(authority, new(mocks.Inspector), new(mocks.Distributor),
		new(mocks.Reconciler), testPolicy, 1, uuid.New(), logger)
	require.NoError(t, err)
	return svc
}

func TestBuild(t *testing.T) {
	now := time.Now().UTC()

	authority := new(mocks.Authority)
	authority.On("ListInventory", mock.Anything).Return([]string{"db-01", "web-01", "old-01"}, nil)
	authority.On("ReadInventory", mock.Anything, "db-01").Return(certfleet.CertificateRecord{
		Hostname:   "db-01",
		CommonName: "db-01.example.com",
		NotAfter:   now.Add(60 * 24 * time.Hour),
	}, true, nil)
	authority.On("ReadInventory", mock.Anything, "web-01").Return(certfleet.CertificateRecord{
		Hostname:   "web-01",
		CommonName: "web-01.example.com",
		NotAfter:   now.Add(3*24*time.Hour + time.Hour),
	}, true, nil)
	authority.On("ReadInventory", mock.Anything, "old-01").Return(certfleet.CertificateRecord{
		Hostname:   "old-01",
		CommonName: "old-01.example.com",
		NotAfter:   now.Add(-36 * time.Hour),
	}, true, nil)

	rep, err := report.Build(context.Background(), testService(t, authority), testPolicy)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 1, rep.ByStatus["healthy"])
	assert.Equal(t, 1, rep.ByStatus["critical"])
	assert.Equal(t, 1, rep.ByStatus["expired"])
	assert.Equal(t, 0, rep.ByStatus["warning"])

	// Most urgent hosts first.
	require.Len(t, rep.Hosts, 3)
	assert.Equal(t, "old-01", rep.Hosts[0].Hostname)
	assert.Equal(t, "web-01", rep.Hosts[1].Hostname)
	assert.Equal(t, "db-01", rep.Hosts[2].Hostname)
	assert.Equal(t, certfleet.StatusExpired, rep.Hosts[0].Status)
	assert.Equal(t, certfleet.StatusCritical, rep.Hosts[1].Status)
	assert.Equal(t, certfleet.StatusHealthy, rep.Hosts[2].Status)
}

func TestBuildListFailure(t *testing.T) {
	authority := new(mocks.Authority)
	authority.On("ListInventory", mock.Anything).Return([]string(nil), errors.New("authority down"))

	_, err := report.Build(context.Background(), testService(t, authority), testPolicy)
	require.Error(t, err)
}

func TestRenderJSON(t *testing.T) {
	rep := report.Report{
		GeneratedAt: time.Now().UTC(),
		Total:       1,
		ByStatus:    map[string]int{"healthy": 1},
		Hosts: []certfleet.CertificateRecord{
			{Hostname: "web-01", Status: certfleet.StatusHealthy},
		},
	}

	out, err := rep.JSON()
	require.NoError(t, err)

	var decoded report.Report
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, rep.Total, decoded.Total)
	assert.Equal(t, "web-01", decoded.Hosts[0].Hostname)
}

func TestRenderText(t *testing.T) {
	rep := report.Report{
		GeneratedAt: time.Now().UTC(),
		Total:       2,
		ByStatus:    map[string]int{"healthy": 1, "expired": 1},
		Hosts: []certfleet.CertificateRecord{
			{
				Hostname:        "old-01",
				CommonName:      "old-01.example.com",
				SerialNumber:    "aa:bb:cc:dd:ee:ff:00:11:22:33",
				DaysUntilExpiry: -2,
				Status:          certfleet.StatusExpired,
				RenewalNeeded:   true,
			},
			{
				Hostname:        "web-01",
				CommonName:      "web-01.example.com",
				SerialNumber:    "20:f4:bd",
				DaysUntilExpiry: 90,
				Status:          certfleet.StatusHealthy,
			},
		},
	}

	out := rep.Text()

	assert.Contains(t, out, "Total: 2")
	assert.Contains(t, out, "old-01")
	assert.Contains(t, out, "web-01")
	assert.Contains(t, out, "expired")
	// Long serials are shortened for the table.
	assert.NotContains(t, out, "aa:bb:cc:dd:ee:ff:00:11:22:33")
}
