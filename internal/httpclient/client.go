// Package httpclient provides a centralized HTTP client factory for upstream provider calls.
package httpclient

import (
	"net"
	"net/http"
	"strconv"
	"time"
)

// DefaultTimeout bounds every upstream call, streaming included.
const DefaultTimeout = 60 * time.Second

// ClientConfig holds configuration options for creating HTTP clients
type ClientConfig struct {
	// MaxIdleConns controls the maximum number of idle (keep-alive) connections across all hosts
	MaxIdleConns int

	// MaxIdleConnsPerHost controls the maximum idle (keep-alive) connections to keep per-host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle connection remains open
	IdleConnTimeout time.Duration

	// Timeout is the upper bound for a whole request, including reading the body
	Timeout time.Duration

	// DialTimeout is the maximum amount of time a dial will wait for a connect to complete
	DialTimeout time.Duration

	// TLSHandshakeTimeout specifies the maximum amount of time to wait for a TLS handshake
	TLSHandshakeTimeout time.Duration
}

// ParseDuration accepts either plain integers (seconds) or Go duration strings ("90s", "2m").
func ParseDuration(val string) (time.Duration, bool) {
	if val == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d, true
	}
	return 0, false
}

// DefaultConfig returns a ClientConfig with defaults suited to chat completions.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		Timeout:             DefaultTimeout,
		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// NewHTTPClient creates a new HTTP client with the provided configuration.
// If config is nil, DefaultConfig() is used.
func NewHTTPClient(config *ClientConfig) *http.Client {
	if config == nil {
		cfg := DefaultConfig()
		config = &cfg
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}
}

// NewWithTimeout creates a client using the defaults with the given overall timeout.
// A non-positive timeout keeps the default.
func NewWithTimeout(timeout time.Duration) *http.Client {
	cfg := DefaultConfig()
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return NewHTTPClient(&cfg)
}
