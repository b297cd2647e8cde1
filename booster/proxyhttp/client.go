// Package proxyhttp builds http.Clients that route through a single
// upstream proxy. The checker and the view protocol share these
// constructors so probe and view traffic leave through identical paths.
package proxyhttp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/proxy"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
)

// NewClient returns a client whose every request is routed through p.
// HTTP proxies go through Transport.Proxy (CONNECT for https targets);
// SOCKS5 proxies get a context-aware dialer, with TLS dials mimicking a
// Chrome handshake.
func NewClient(p model.Proxy, timeout time.Duration) (*http.Client, error) {
	var transport *http.Transport

	switch p.Protocol {
	case model.ProtocolHTTP:
		proxyURL, err := url.Parse(p.URL())
		if err != nil {
			return nil, fmt.Errorf("invalid http proxy url: %w", err)
		}
		dialer := &net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}
		transport = &http.Transport{
			Proxy:                 http.ProxyURL(proxyURL),
			DialContext:           dialer.DialContext,
			TLSClientConfig:       &tls.Config{InsecureSkipVerify: true},
			IdleConnTimeout:       timeout,
			TLSHandshakeTimeout:   timeout / 2,
			ExpectContinueTimeout: 1 * time.Second,
		}

	case model.ProtocolSOCKS5:
		var auth *proxy.Auth
		if p.Username != "" && p.Password != "" {
			auth = &proxy.Auth{User: p.Username, Password: p.Password}
		}
		dialer, err := proxy.SOCKS5("tcp", fmt.Sprintf("%s:%d", p.Host, p.Port), auth, &net.Dialer{Timeout: timeout})
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer does not support contexts")
		}
		transport = &http.Transport{
			DialContext:           contextDialer.DialContext,
			DialTLSContext:        chromeTLSDialer(contextDialer),
			IdleConnTimeout:       timeout,
			ExpectContinueTimeout: 1 * time.Second,
		}

	default:
		return nil, fmt.Errorf("unsupported proxy protocol %q", p.Protocol)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// chromeTLSDialer wraps the SOCKS5 dialer with a uTLS handshake that
// presents a Chrome ClientHello. ALPN is pinned to http/1.1 because the
// transport above it only speaks HTTP/1.1.
func chromeTLSDialer(d proxy.ContextDialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		raw, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("building client hello spec: %w", err)
		}
		for _, ext := range spec.Extensions {
			if alpn, ok := ext.(*utls.ALPNExtension); ok {
				alpn.AlpnProtocols = []string{"http/1.1"}
			}
		}

		uconn := utls.UClient(raw, &utls.Config{
			ServerName:         host,
			InsecureSkipVerify: true,
		}, utls.HelloCustom)
		if err := uconn.ApplyPreset(&spec); err != nil {
			raw.Close()
			return nil, fmt.Errorf("applying client hello spec: %w", err)
		}
		if err := uconn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, err
		}
		return uconn, nil
	}
}
