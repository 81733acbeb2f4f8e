// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

// Package exporter re-exposes the authority's certificate inventory as
// Prometheus time series, one labeled sample per record field plus
// fleet-wide aggregates per status.
package exporter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quartzlabs/certfleet"
)

const serialLabelLen = 16

var (
	daysUntilExpiryDesc = prometheus.NewDesc(
		"certfleet_certificate_days_until_expiry",
		"Days until certificate expires.",
		[]string{"hostname", "cn", "serial"}, nil,
	)
	renewalNeededDesc = prometheus.NewDesc(
		"certfleet_certificate_renewal_needed",
		"Certificate renewal needed (1=yes, 0=no).",
		[]string{"hostname", "cn"}, nil,
	)
	statusDesc = prometheus.NewDesc(
		"certfleet_certificate_status",
		"Certificate status (0=healthy, 1=warning, 2=critical, 3=expired).",
		[]string{"hostname", "cn", "status"}, nil,
	)
	lastScannedDesc = prometheus.NewDesc(
		"certfleet_certificate_last_scanned_timestamp",
		"Unix timestamp of the last certificate scan.",
		[]string{"hostname", "cn"}, nil,
	)
	totalDesc = prometheus.NewDesc(
		"certfleet_certificates_total",
		"Total number of certificates tracked.",
		nil, nil,
	)
	byStatusDesc = prometheus.NewDesc(
		"certfleet_certificates_by_status",
		"Count of certificates by status.",
		[]string{"status"}, nil,
	)
	scrapeSuccessDesc = prometheus.NewDesc(
		"certfleet_exporter_scrape_success",
		"Whether the last inventory scrape succeeded.",
		nil, nil,
	)
)

// Collector walks the inventory on every scrape and reclassifies each
// record against the policy thresholds at scrape time, so the exposed
// status reflects the current clock rather than the last scan.
type Collector struct {
	authority certfleet.Authority
	policy    certfleet.Policy
	timeout   time.Duration
	logger    *slog.Logger
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns an inventory-backed Prometheus collector.
func NewCollector(authority certfleet.Authority, policy certfleet.Policy, timeout time.Duration, logger *slog.Logger) *Collector {
	return &Collector{
		authority: authority,
		policy:    policy,
		timeout:   timeout,
		logger:    logger,
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- daysUntilExpiryDesc
	ch <- renewalNeededDesc
	ch <- statusDesc
	ch <- lastScannedDesc
	ch <- totalDesc
	ch <- byStatusDesc
	ch <- scrapeSuccessDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	now := time.Now().UTC()

	hostnames, err := c.authority.ListInventory(ctx)
	if err != nil {
		c.logger.Error("failed to list inventory", "error", err)
		ch <- prometheus.MustNewConstMetric(scrapeSuccessDesc, prometheus.GaugeValue, 0)
		return
	}

	statusCounts := map[certfleet.Status]int{
		certfleet.StatusHealthy:  0,
		certfleet.StatusWarning:  0,
		certfleet.StatusCritical: 0,
		certfleet.StatusExpired:  0,
	}
	total := 0

	for _, hostname := range hostnames {
		record, found, err := c.authority.ReadInventory(ctx, hostname)
		if err != nil {
			c.logger.Warn("failed to read inventory record", "hostname", hostname, "error", err)
			continue
		}
		if !found {
			continue
		}

		days := certfleet.DaysUntilExpiry(record.NotAfter, now)
		status := certfleet.StatusFor(days, c.policy)
		statusCounts[status]++
		total++

		renewal := 0.0
		if record.RenewalNeeded {
			renewal = 1.0
		}

		serial := record.SerialNumber
		if len(serial) > serialLabelLen {
			serial = serial[:serialLabelLen]
		}

		ch <- prometheus.MustNewConstMetric(daysUntilExpiryDesc, prometheus.GaugeValue,
			float64(days), record.Hostname, record.CommonName, serial)
		ch <- prometheus.MustNewConstMetric(renewalNeededDesc, prometheus.GaugeValue,
			renewal, record.Hostname, record.CommonName)
		ch <- prometheus.MustNewConstMetric(statusDesc, prometheus.GaugeValue,
			float64(status), record.Hostname, record.CommonName, status.String())
		ch <- prometheus.MustNewConstMetric(lastScannedDesc, prometheus.GaugeValue,
			float64(record.LastScanned.Unix()), record.Hostname, record.CommonName)
	}

	ch <- prometheus.MustNewConstMetric(totalDesc, prometheus.GaugeValue, float64(total))
	for status, count := range statusCounts {
		ch <- prometheus.MustNewConstMetric(byStatusDesc, prometheus.GaugeValue,
			float64(count), status.String())
	}
	ch <- prometheus.MustNewConstMetric(scrapeSuccessDesc, prometheus.GaugeValue, 1)
}

// MakeHandler returns the exporter HTTP routes: Prometheus metrics plus
// a health probe that reflects the authority's own health.
func MakeHandler(registry *prometheus.Registry, authority certfleet.Authority, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), timeout)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := authority.Health(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	return r
}
