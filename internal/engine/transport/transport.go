// Package transport builds the HTTP clients used against the places service
// and lead websites.
package transport

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
)

// Fingerprint selects the TLS ClientHello presented to servers.
type Fingerprint string

const (
	FingerprintGo     Fingerprint = "go"
	FingerprintChrome Fingerprint = "chrome"
)

// ParseFingerprint validates a configured fingerprint name.
func ParseFingerprint(s string) (Fingerprint, error) {
	switch Fingerprint(s) {
	case "", FingerprintGo:
		return FingerprintGo, nil
	case FingerprintChrome:
		return FingerprintChrome, nil
	}
	return "", fmt.Errorf("unknown tls fingerprint %q", s)
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

// UserAgent returns a browser user agent.
func UserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// Config describes an HTTP client.
type Config struct {
	Timeout      time.Duration
	Fingerprint  Fingerprint
	MaxRedirects int // 0 keeps the net/http default of 10
}

// NewClient returns an *http.Client for cfg.
func NewClient(cfg Config) *http.Client {
	c := &http.Client{
		Transport: newRoundTripper(cfg.Fingerprint),
		Timeout:   cfg.Timeout,
	}
	if cfg.MaxRedirects > 0 {
		limit := cfg.MaxRedirects
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("stopped after %d redirects", limit)
			}
			return nil
		}
	}
	return c
}

func newRoundTripper(fp Fingerprint) http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 10
	t.IdleConnTimeout = 90 * time.Second
	if fp != FingerprintChrome {
		return t
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	t.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		// Chrome hello, but pinned to HTTP/1.1 since the transport does not speak h2 over a custom conn
		spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
		if err != nil {
			conn.Close()
			return nil, err
		}
		for i, ext := range spec.Extensions {
			if alpn, ok := ext.(*utls.ALPNExtension); ok {
				alpn.AlpnProtocols = []string{"http/1.1"}
				spec.Extensions[i] = alpn
				break
			}
		}

		tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloCustom)
		if err := tlsConn.ApplyPreset(&spec); err != nil {
			conn.Close()
			return nil, err
		}
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
	return t
}
