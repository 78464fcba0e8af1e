package proxychain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"ecourts-backend/internal/telemetry"

	"github.com/go-resty/resty/v2"
)

const report_source_verify = "source.verify"

// ErrUnavailable means no proxy endpoint is configured at all. It is not retried.
var ErrUnavailable = errors.New("proxy unavailable")

// Source hands out the upstream proxy endpoint a browser session should egress through.
//
// note: fault injection point
type Source interface {
	ProxyEndpoint(ctx context.Context) (string, error)
}

// StaticSource returns a fixed endpoint, falling back to an environment variable.
type StaticSource struct {
	Endpoint string
	// EnvVar is consulted when Endpoint is empty, defaults to PROXY.
	EnvVar string
}

func (s StaticSource) ProxyEndpoint(ctx context.Context) (string, error) {
	endpoint := s.Endpoint
	if endpoint == "" {
		envVar := s.EnvVar
		if envVar == "" {
			envVar = "PROXY"
		}
		endpoint = os.Getenv(envVar)
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", ErrUnavailable
	}
	if _, err := ParseEndpoint(endpoint); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return endpoint, nil
}

// ParseEndpoint validates a proxy endpoint. Endpoints without a scheme are taken as http.
func ParseEndpoint(endpoint string) (*url.URL, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse proxy endpoint: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("proxy endpoint %q needs a host and port", u.Redacted())
	}
	return u, nil
}

// VerifyingSource checks that an endpoint actually egresses before handing it out
// by fetching an IP echo page through it.
type VerifyingSource struct {
	Inner     Source
	VerifyURL string
	Timeout   time.Duration

	tel telemetry.API
}

func NewVerifyingSource(inner Source, verifyURL string, tel telemetry.API) VerifyingSource {
	return VerifyingSource{
		Inner:     inner,
		VerifyURL: verifyURL,
		Timeout:   20 * time.Second,
		tel:       telemetry.NewScopedAPI("proxy", tel),
	}
}

func (s VerifyingSource) ProxyEndpoint(ctx context.Context) (string, error) {
	endpoint, err := s.Inner.ProxyEndpoint(ctx)
	if err != nil {
		return "", err
	}
	if s.VerifyURL == "" {
		return endpoint, nil
	}

	u, err := ParseEndpoint(endpoint)
	if err != nil {
		return "", err
	}
	client := resty.New().
		SetProxy(u.String()).
		SetTimeout(s.Timeout)
	res, err := client.R().SetContext(ctx).Get(s.VerifyURL)
	if err != nil {
		s.tel.ReportWarning(report_source_verify, err)
		return "", fmt.Errorf("verify proxy: %w", err)
	}
	if res.IsError() {
		err = fmt.Errorf("verify proxy: unexpected status %s", res.Status())
		s.tel.ReportWarning(report_source_verify, err)
		return "", err
	}
	s.tel.ReportDebug("proxy verified", strings.TrimSpace(res.String()))
	return endpoint, nil
}
