// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

package inventory_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/quartzlabs/certfleet"
	"github.com/quartzlabs/certfleet/errors"
	"github.com/quartzlabs/certfleet/inventory"
	"github.com/quartzlabs/certfleet/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReconcile(t *testing.T) {
	record := certfleet.CertificateRecord{
		Hostname:     "web-01",
		SerialNumber: "20:f4:bd:43:2c:c7:06:82",
		NotAfter:     time.Now().Add(90 * 24 * time.Hour),
	}

	testCases := []struct {
		desc     string
		writeErr error
		err      error
	}{
		{
			desc: "upsert record successfully",
		},
		{
			desc:     "surface write failure",
			writeErr: errors.New("kv sealed"),
			err:      errors.ErrInventoryWriteFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			authority := new(mocks.Authority)
			authority.On("WriteInventory", mock.Anything, record.Hostname, record).Return(tc.writeErr)

			rec := inventory.New(authority, testLogger())
			err := rec.Reconcile(context.Background(), record.Hostname, record)
			if tc.err != nil {
				require.True(t, errors.Contains(err, tc.err), "expected error %v, got %v", tc.err, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestReconcileIdempotent(t *testing.T) {
	record := certfleet.CertificateRecord{
		Hostname:     "web-01",
		SerialNumber: "20:f4:bd:43:2c:c7:06:82",
	}

	authority := new(mocks.Authority)
	authority.On("WriteInventory", mock.Anything, record.Hostname, record).Return(nil)

	rec := inventory.New(authority, testLogger())

	// Repeating the upsert with the same record is safe.
	require.NoError(t, rec.Reconcile(context.Background(), record.Hostname, record))
	require.NoError(t, rec.Reconcile(context.Background(), record.Hostname, record))
	authority.AssertNumberOfCalls(t, "WriteInventory", 2)
}
