// Copyright (c) Quartz Labs
// SPDX-License-Identifier: Apache-2.0

// Package pki wraps the OpenBao client for authority operations: AppRole
// authentication, leaf certificate issuance and the per-host certificate
// inventory kept in the KV v2 store.
package pki

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/openbao/openbao/api/v2"
	"github.com/quartzlabs/certfleet"
	"github.com/quartzlabs/certfleet/errors"
)

const (
	issue           = "issue"
	kvDataPath      = "data"
	kvMetadataPath  = "metadata"
	inventoryPrefix = "certificates"
	healthEndpoint  = "/v1/sys/health"
	loginEndpoint   = "auth/approle/login"
)

var (
	errNoAuthInfo = errors.New("no auth information from OpenBao")
	errNoCertData = errors.New("no certificate data returned from OpenBao")
)

// RetryPolicy bounds the retries of authority calls. It is injected into
// the client once so every call site shares the same policy.
type RetryPolicy struct {
	MaxAttempts uint64
	Interval    time.Duration
	Jitter      float64
}

// DefaultRetryPolicy bounds retries to a handful of attempts with
// jittered backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Interval:    time.Second,
		Jitter:      0.5,
	}
}

func (rp RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rp.Interval
	b.RandomizationFactor = rp.Jitter
	return backoff.WithContext(backoff.WithMaxRetries(b, rp.MaxAttempts), ctx)
}

type openbaoAuthority struct {
	appRole   string
	appSecret string
	host      string
	namespace string
	pkiPath   string
	role      string
	kvMount   string
	issueURL  string
	retry     RetryPolicy
	client    *api.Client
	logger    *slog.Logger

	// Guards token refresh so only one login is in flight; concurrent
	// callers wait on the mutex and reuse the refreshed token.
	loginMu sync.Mutex
	secret  *api.Secret
}

// NewAuthority instantiates an OpenBao client that implements
// certfleet.Authority.
func NewAuthority(appRole, appSecret, host, namespace, pkiPath, role, kvMount string, retry RetryPolicy, logger *slog.Logger) (certfleet.Authority, error) {
	conf := api.DefaultConfig()
	conf.Address = host

	client, err := api.NewClient(conf)
	if err != nil {
		return nil, err
	}
	if namespace != "" {
		client.SetNamespace(namespace)
	}

	a := openbaoAuthority{
		appRole:   appRole,
		appSecret: appSecret,
		host:      host,
		namespace: namespace,
		pkiPath:   pkiPath,
		role:      role,
		kvMount:   kvMount,
		issueURL:  "/" + pkiPath + "/" + issue + "/" + role,
		retry:     retry,
		client:    client,
		logger:    logger,
	}
	return &a, nil
}

func (a *openbaoAuthority) Authenticate(ctx context.Context) error {
	a.loginMu.Lock()
	defer a.loginMu.Unlock()

	if a.secret != nil && a.secret.Auth != nil && a.secret.Auth.ClientToken != "" {
		if _, err := a.client.Auth().Token().LookupSelfWithContext(ctx); err == nil {
			return nil
		}
	}

	authData := map[string]any{
		"role_id":   a.appRole,
		"secret_id": a.appSecret,
	}

	var authResp *api.Secret
	op := func() error {
		resp, err := a.client.Logical().WriteWithContext(ctx, loginEndpoint, authData)
		if err != nil {
			if denied(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		authResp = resp
		return nil
	}
	if err := backoff.Retry(op, a.retry.backOff(ctx)); err != nil {
		return errors.Wrap(errors.ErrAuthFailure, err)
	}

	if authResp == nil || authResp.Auth == nil {
		return errors.Wrap(errors.ErrAuthFailure, errNoAuthInfo)
	}

	a.secret = authResp
	a.client.SetToken(authResp.Auth.ClientToken)
	a.logger.Info("authenticated to authority", "lease_duration", authResp.Auth.LeaseDuration)

	return nil
}

func (a *openbaoAuthority) Issue(ctx context.Context, commonName, ttl string) (certfleet.CertificateBundle, error) {
	if err := a.Authenticate(ctx); err != nil {
		return certfleet.CertificateBundle{}, err
	}

	secretValues := map[string]any{
		"common_name":          commonName,
		"ttl":                  ttl,
		"exclude_cn_from_sans": false,
	}

	var secret *api.Secret
	op := func() error {
		resp, err := a.client.Logical().WriteWithContext(ctx, a.issueURL, secretValues)
		if err != nil {
			if denied(err) {
				return backoff.Permanent(errors.Wrap(errors.ErrIssuanceDenied, err))
			}
			return errors.Wrap(errors.ErrAuthorityUnreachable, err)
		}
		secret = resp
		return nil
	}
	if err := backoff.Retry(op, a.retry.backOff(ctx)); err != nil {
		return certfleet.CertificateBundle{}, err
	}

	if secret == nil || secret.Data == nil {
		return certfleet.CertificateBundle{}, errNoCertData
	}

	bundle := certfleet.CertificateBundle{}

	if certData, ok := secret.Data["certificate"].(string); ok {
		bundle.Certificate = []byte(certData)
	}
	if keyData, ok := secret.Data["private_key"].(string); ok {
		bundle.PrivateKey = []byte(keyData)
	}
	if caData, ok := secret.Data["issuing_ca"].(string); ok {
		bundle.CA = []byte(caData)
	}
	if chainData, ok := secret.Data["ca_chain"]; ok {
		var chain []string
		if err := mapstructure.Decode(chainData, &chain); err == nil && len(chain) > 0 {
			bundle.Chain = []byte(strings.Join(chain, "\n"))
		}
	}
	if len(bundle.Chain) == 0 {
		bundle.Chain = bundle.CA
	}
	if serialNumber, ok := secret.Data["serial_number"].(string); ok {
		bundle.SerialNumber = serialNumber
	}
	if expiration, ok := secret.Data["expiration"]; ok {
		bundle.Expiration = parseExpiration(expiration)
	}

	if len(bundle.Certificate) == 0 || len(bundle.PrivateKey) == 0 {
		return certfleet.CertificateBundle{}, errNoCertData
	}

	return bundle, nil
}

func (a *openbaoAuthority) ReadInventory(ctx context.Context, hostname string) (certfleet.CertificateRecord, bool, error) {
	if err := a.Authenticate(ctx); err != nil {
		return certfleet.CertificateRecord{}, false, err
	}

	secret, err := a.client.Logical().ReadWithContext(ctx, a.recordPath(hostname))
	if err != nil {
		return certfleet.CertificateRecord{}, false, errors.Wrap(errors.ErrAuthorityUnreachable, err)
	}
	if secret == nil || secret.Data == nil {
		return certfleet.CertificateRecord{}, false, nil
	}

	payload, ok := secret.Data["data"].(map[string]any)
	if !ok || len(payload) == 0 {
		return certfleet.CertificateRecord{}, false, nil
	}

	record, err := decodeRecord(payload)
	if err != nil {
		return certfleet.CertificateRecord{}, false, fmt.Errorf("failed to decode inventory record for %s: %w", hostname, err)
	}

	return record, true, nil
}

func (a *openbaoAuthority) WriteInventory(ctx context.Context, hostname string, record certfleet.CertificateRecord) error {
	if err := a.Authenticate(ctx); err != nil {
		return err
	}

	// The private key is not part of the record and must never reach the
	// inventory.
	payload := map[string]any{
		"hostname":          record.Hostname,
		"fqdn":              record.FQDN,
		"common_name":       record.CommonName,
		"serial_number":     record.SerialNumber,
		"issuer":            record.Issuer,
		"not_before":        record.NotBefore.UTC().Format(time.RFC3339),
		"not_after":         record.NotAfter.UTC().Format(time.RFC3339),
		"days_until_expiry": record.DaysUntilExpiry,
		"status":            record.Status.String(),
		"renewal_needed":    record.RenewalNeeded,
		"last_scanned":      record.LastScanned.UTC().Format(time.RFC3339),
		"file_paths": map[string]any{
			"certificate": record.FilePaths.Certificate,
			"private_key": record.FilePaths.PrivateKey,
			"ca":          record.FilePaths.CA,
			"chain":       record.FilePaths.Chain,
		},
	}

	op := func() error {
		if _, err := a.client.Logical().WriteWithContext(ctx, a.recordPath(hostname), map[string]any{"data": payload}); err != nil {
			if denied(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}
	if err := backoff.Retry(op, a.retry.backOff(ctx)); err != nil {
		return errors.Wrap(errors.ErrAuthorityUnreachable, err)
	}

	return nil
}

func (a *openbaoAuthority) ListInventory(ctx context.Context) ([]string, error) {
	if err := a.Authenticate(ctx); err != nil {
		return nil, err
	}

	secret, err := a.client.Logical().ListWithContext(ctx, a.kvMount+"/"+kvMetadataPath+"/"+inventoryPrefix)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAuthorityUnreachable, err)
	}
	if secret == nil || secret.Data == nil {
		return []string{}, nil
	}

	keysInterface, ok := secret.Data["keys"]
	if !ok {
		return []string{}, nil
	}

	var hostnames []string
	if err := mapstructure.Decode(keysInterface, &hostnames); err != nil {
		return nil, fmt.Errorf("failed to decode inventory hostnames: %w", err)
	}

	return hostnames, nil
}

// Health probes sys/health directly. A clustered deployment answers 200
// on the active node and 429 on a standby; both codes are accepted and
// this dual-code contract must not be collapsed into a single code.
func (a *openbaoAuthority) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.host+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}
	if a.namespace != "" {
		req.Header.Set("X-Vault-Namespace", a.namespace)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrAuthorityUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusTooManyRequests:
		return nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("authority unhealthy: HTTP %d - %s", resp.StatusCode, string(body))
	}
}

func (a *openbaoAuthority) recordPath(hostname string) string {
	return a.kvMount + "/" + kvDataPath + "/" + inventoryPrefix + "/" + hostname
}

func decodeRecord(payload map[string]any) (certfleet.CertificateRecord, error) {
	var record certfleet.CertificateRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		WeaklyTypedInput: true,
		Result:           &record,
	})
	if err != nil {
		return certfleet.CertificateRecord{}, err
	}
	if err := decoder.Decode(payload); err != nil {
		return certfleet.CertificateRecord{}, err
	}

	if statusStr, ok := payload["status"].(string); ok {
		if status, err := certfleet.ParseStatus(statusStr); err == nil {
			record.Status = status
		}
	}

	return record, nil
}

func parseExpiration(expiration any) time.Time {
	switch exp := expiration.(type) {
	case int64:
		return time.Unix(exp, 0)
	case float64:
		return time.Unix(int64(exp), 0)
	case json.Number:
		if expInt, err := exp.Int64(); err == nil {
			return time.Unix(expInt, 0)
		}
	}
	return time.Time{}
}

// denied reports whether the authority rejected the request outright, as
// opposed to a transport failure worth retrying.
func denied(err error) bool {
	var respErr *api.ResponseError
	if stderrors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusBadRequest || respErr.StatusCode == http.StatusForbidden
	}
	return false
}
