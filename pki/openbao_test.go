// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package pki_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quartzlabs/certfleet"
	"github.com/quartzlabs/certfleet/errors"
	"github.com/quartzlabs/certfleet/pki"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken  = "test-client-token"
	testSerial = "20:f4:bd:43:2c:c7:06:82"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRetry() pki.RetryPolicy {
	return pki.RetryPolicy{
		MaxAttempts: 1,
		Interval:    time.Millisecond,
		Jitter:      0,
	}
}

// fakeBao is a minimal OpenBao stand-in covering AppRole login, leaf
// issuance, the KV v2 inventory and the health endpoint.
type fakeBao struct {
	mu sync.Mutex

	denyLogin  bool
	denyIssue  bool
	standby    bool
	unhealthy  bool
	lastToken  string
	loginCount int
	records    map[string]map[string]any
}

func newFakeBao() *fakeBao {
	return &fakeBao{records: make(map[string]map[string]any)}
}

func (f *fakeBao) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.lastToken = r.Header.Get("X-Vault-Token")

		switch {
		case r.URL.Path == "/v1/auth/approle/login":
			f.loginCount++
			if f.denyLogin {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"errors":["invalid role or secret ID"]}`))
				return
			}
			writeJSON(w, map[string]any{
				"auth": map[string]any{
					"client_token":   testToken,
					"lease_duration": 3600,
				},
			})

		case r.URL.Path == "/v1/auth/token/lookup-self":
			if f.lastToken != testToken {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
				return
			}
			writeJSON(w, map[string]any{"data": map[string]any{"id": testToken}})

		case r.URL.Path == "/v1/pki_int/issue/fleet-hosts":
			if f.denyIssue {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"errors":["issuance not allowed by role"]}`))
				return
			}
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			writeJSON(w, map[string]any{
				"data": map[string]any{
					"certificate":   "leaf-pem",
					"private_key":   "key-pem",
					"issuing_ca":    "ca-pem",
					"ca_chain":      []string{"intermediate-pem", "root-pem"},
					"serial_number": testSerial,
					"expiration":    time.Now().Add(90 * 24 * time.Hour).Unix(),
				},
			})

		case strings.HasPrefix(r.URL.Path, "/v1/secret/data/certificates/"):
			hostname := strings.TrimPrefix(r.URL.Path, "/v1/secret/data/certificates/")
			switch r.Method {
			case http.MethodGet:
				payload, ok := f.records[hostname]
				if !ok {
					w.WriteHeader(http.StatusNotFound)
					_, _ = w.Write([]byte(`{"errors":[]}`))
					return
				}
				writeJSON(w, map[string]any{"data": map[string]any{"data": payload}})
			case http.MethodPut, http.MethodPost:
				var body map[string]any
				_ = json.NewDecoder(r.Body).Decode(&body)
				payload, _ := body["data"].(map[string]any)
				f.records[hostname] = payload
				writeJSON(w, map[string]any{"data": map[string]any{"version": 1}})
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}

		case strings.HasPrefix(r.URL.Path, "/v1/secret/metadata/certificates"):
			keys := make([]string, 0, len(f.records))
			for hostname := range f.records {
				keys = append(keys, hostname)
			}
			writeJSON(w, map[string]any{"data": map[string]any{"keys": keys}})

		case r.URL.Path == "/v1/sys/health":
			switch {
			case f.unhealthy:
				w.WriteHeader(http.StatusInternalServerError)
			case f.standby:
				w.WriteHeader(http.StatusTooManyRequests)
			default:
				w.WriteHeader(http.StatusOK)
			}
			_, _ = w.Write([]byte(`{}`))

		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
		}
	})
}

func writeJSON(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func newTestAuthority(t *testing.T, baseURL string) certfleet.Authority {
	authority, err := pki.NewAuthority("role-id", "secret-id", baseURL, "",
		"pki_int", "fleet-hosts", "secret", testRetry(), testLogger())
	require.NoError(t, err)
	return authority
}

func TestAuthenticate(t *testing.T) {
	testCases := []struct {
		desc      string
		denyLogin bool
		err       error
	}{
		{
			desc: "authenticate successfully",
		},
		{
			desc:      "rejected credentials",
			denyLogin: true,
			err:       errors.ErrAuthFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			fake := newFakeBao()
			fake.denyLogin = tc.denyLogin
			srv := httptest.NewServer(fake.handler())
			defer srv.Close()

			authority := newTestAuthority(t, srv.URL)
			err := authority.Authenticate(context.Background())
			if tc.err != nil {
				require.True(t, errors.Contains(err, tc.err), "expected error %v, got %v", tc.err, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAuthenticateReusesToken(t *testing.T) {
	fake := newFakeBao()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	authority := newTestAuthority(t, srv.URL)
	require.NoError(t, authority.Authenticate(context.Background()))
	require.NoError(t, authority.Authenticate(context.Background()))

	// The second call verifies the cached token instead of logging in again.
	assert.Equal(t, 1, fake.loginCount)
}

func TestIssue(t *testing.T) {
	testCases := []struct {
		desc      string
		denyIssue bool
		err       error
	}{
		{
			desc: "issue bundle successfully",
		},
		{
			desc:      "issuance denied by role policy",
			denyIssue: true,
			err:       errors.ErrIssuanceDenied,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			fake := newFakeBao()
			fake.denyIssue = tc.denyIssue
			srv := httptest.NewServer(fake.handler())
			defer srv.Close()

			authority := newTestAuthority(t, srv.URL)
			bundle, err := authority.Issue(context.Background(), "web-01.example.com", "2160h")
			if tc.err != nil {
				require.True(t, errors.Contains(err, tc.err), "expected error %v, got %v", tc.err, err)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, []byte("leaf-pem"), bundle.Certificate)
			assert.Equal(t, []byte("key-pem"), bundle.PrivateKey)
			assert.Equal(t, []byte("ca-pem"), bundle.CA)
			assert.Equal(t, []byte("intermediate-pem\nroot-pem"), bundle.Chain)
			assert.Equal(t, testSerial, bundle.SerialNumber)
			assert.WithinDuration(t, time.Now().Add(90*24*time.Hour), bundle.Expiration, time.Minute)
		})
	}
}

func TestInventoryRoundTrip(t *testing.T) {
	fake := newFakeBao()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	authority := newTestAuthority(t, srv.URL)

	notBefore := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	notAfter := notBefore.Add(90 * 24 * time.Hour)
	record := certfleet.CertificateRecord{
		Hostname:        "web-01",
		FQDN:            "web-01.example.com",
		CommonName:      "web-01.example.com",
		SerialNumber:    testSerial,
		Issuer:          "Quartz Labs Intermediate CA",
		NotBefore:       notBefore,
		NotAfter:        notAfter,
		DaysUntilExpiry: 42,
		Status:          certfleet.StatusWarning,
		RenewalNeeded:   false,
		LastScanned:     notBefore.Add(48 * 24 * time.Hour),
		FilePaths: certfleet.FilePaths{
			Certificate: "/etc/pki/fleet/web-01.example.com.crt",
			PrivateKey:  "/etc/pki/fleet/private/web-01.example.com.key",
			CA:          "/etc/pki/fleet/web-01.example.com-ca.crt",
			Chain:       "/etc/pki/fleet/web-01.example.com-chain.crt",
		},
	}

	require.NoError(t, authority.WriteInventory(context.Background(), record.Hostname, record))

	// Key material never reaches the inventory: only the on-host path of
	// the private key is stored.
	stored := fake.records[record.Hostname]
	require.NotNil(t, stored)
	assert.NotContains(t, stored, "private_key")
	assert.Equal(t, "warning", stored["status"])

	got, found, err := authority.ReadInventory(context.Background(), record.Hostname)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, record.Hostname, got.Hostname)
	assert.Equal(t, record.FQDN, got.FQDN)
	assert.Equal(t, record.SerialNumber, got.SerialNumber)
	assert.Equal(t, record.Issuer, got.Issuer)
	assert.True(t, record.NotAfter.Equal(got.NotAfter))
	assert.Equal(t, record.DaysUntilExpiry, got.DaysUntilExpiry)
	assert.Equal(t, record.Status, got.Status)
	assert.Equal(t, record.FilePaths, got.FilePaths)
}

func TestReadInventoryAbsent(t *testing.T) {
	fake := newFakeBao()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	authority := newTestAuthority(t, srv.URL)

	_, found, err := authority.ReadInventory(context.Background(), "never-enrolled")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListInventory(t *testing.T) {
	fake := newFakeBao()
	fake.records["web-01"] = map[string]any{"hostname": "web-01"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	authority := newTestAuthority(t, srv.URL)

	hostnames, err := authority.ListInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"web-01"}, hostnames)
}

func TestHealth(t *testing.T) {
	testCases := []struct {
		desc      string
		standby   bool
		unhealthy bool
		err       bool
	}{
		{
			desc: "active node",
		},
		{
			desc:    "standby node is healthy",
			standby: true,
		},
		{
			desc:      "failing node",
			unhealthy: true,
			err:       true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			fake := newFakeBao()
			fake.standby = tc.standby
			fake.unhealthy = tc.unhealthy
			srv := httptest.NewServer(fake.handler())
			defer srv.Close()

			authority := newTestAuthority(t, srv.URL)
			err := authority.Health(context.Background())
			if tc.err {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
