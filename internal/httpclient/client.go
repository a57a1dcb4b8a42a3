// Package httpclient builds the HTTP clients used against the ad platform,
// with proxy support for corporate networks (none, system, basic, NTLM).
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"golang.org/x/net/http/httpproxy"

	"github.com/creativeflow/creative-int/internal/config"
	"github.com/creativeflow/creative-int/internal/logging"
)

// New creates an HTTP client honoring the configured proxy mode. The client
// carries no overall timeout; callers bound requests with contexts or wrap
// the client in a retrying layer that does.
func New(cfg *config.Config, log *logging.Logger) (*nethttp.Client, error) {
	transport := &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	switch strings.ToLower(cfg.ProxyMode) {
	case "no-proxy", "":
		transport.Proxy = nil

	case "system":
		transport.Proxy = nethttp.ProxyFromEnvironment

	case "basic":
		if cfg.ProxyHost == "" {
			log.Warn().Msg("Proxy mode is basic but no host is configured, proceeding without proxy")
			break
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy, log)

	case "ntlm":
		if cfg.ProxyHost == "" {
			log.Warn().Msg("Proxy mode is NTLM but no host is configured, proceeding without proxy")
			break
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy, log)
		// NTLM negotiation happens per connection, wrapping the transport.
		return &nethttp.Client{
			Transport: ntlmssp.Negotiator{RoundTripper: transport},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.ProxyMode)
	}

	return &nethttp.Client{Transport: transport}, nil
}

// buildProxyURL constructs the proxy endpoint URL from configuration.
func buildProxyURL(cfg *config.Config) *url.URL {
	port := cfg.ProxyPort
	if port == 0 {
		port = 8080
	}

	proxyURL := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", cfg.ProxyHost, port),
	}
	// An empty password embedded in the URL breaks auth with some proxies,
	// so credentials are only attached when both halves are present.
	if cfg.ProxyUser != "" && cfg.ProxyPassword != "" {
		proxyURL.User = url.UserPassword(cfg.ProxyUser, cfg.ProxyPassword)
	}
	return proxyURL
}

// proxyFuncWithBypass returns a proxy selection function that honors the
// NoProxy bypass list (hostnames, wildcard domains, CIDR ranges). An empty
// list behaves identically to http.ProxyURL.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string, log *logging.Logger) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	cfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := cfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		result, err := proxyFunc(req.URL)
		if result == nil {
			log.Debugf("Proxy bypass: %s (direct connection)", req.URL.Host)
		} else {
			log.Debugf("Proxied: %s via %s", req.URL.Host, result.Host)
		}
		return result, err
	}
}

// NeedsProxyPassword reports whether the proxy configuration requires a
// password that has not been provided, so the CLI can prompt for it.
func NeedsProxyPassword(cfg *config.Config) bool {
	mode := strings.ToLower(cfg.ProxyMode)
	if mode != "basic" && mode != "ntlm" {
		return false
	}
	return cfg.ProxyUser != "" && cfg.ProxyPassword == ""
}
