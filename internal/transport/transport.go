// Package transport provides the outbound HTTP transports used by the gateways.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// RequestIDHeader carries the id that correlates a storefront call with the
// inbound request that caused it.
const RequestIDHeader = "X-Request-ID"

// Options configures New.
type Options struct {
	Timeout     time.Duration // dial and handshake timeout
	UserAgent   string        // stamped on requests that don't set one
	Fingerprint bool          // present a Chrome TLS fingerprint

	// RequestID extracts the inbound request id from a call's context.
	// When it is nil or returns "", each call gets a fresh UUID.
	RequestID func(context.Context) string
}

// New returns the transport used for all storefront API calls.
func New(opts Options) http.RoundTripper {
	var base http.RoundTripper
	if opts.Fingerprint {
		base = NewChromeTransport(opts.Timeout)
	} else {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if opts.Timeout > 0 {
			t.DialContext = (&net.Dialer{Timeout: opts.Timeout}).DialContext
			t.TLSHandshakeTimeout = opts.Timeout
		}
		base = t
	}
	return &headerTransport{base: base, userAgent: opts.UserAgent, requestID: opts.RequestID}
}

// headerTransport stamps User-Agent and X-Request-ID on outbound requests.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
	requestID func(context.Context) string
}

// RoundTrip implements http.RoundTripper. Headers the caller already set win.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if t.userAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.userAgent)
	}
	if r.Header.Get(RequestIDHeader) == "" {
		r.Header.Set(RequestIDHeader, t.idFor(r.Context()))
	}
	return t.base.RoundTrip(r)
}

func (t *headerTransport) idFor(ctx context.Context) string {
	if t.requestID != nil {
		if id := t.requestID(ctx); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// NewChromeTransport returns a RoundTripper that dials with uTLS and a
// Chrome ClientHello, speaking HTTP/2 where the host accepts it and
// HTTP/1.1 otherwise. Some CDNs in front of shops rate limit Go's default
// TLS fingerprint.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialChromeTLS(ctx, dialer, network, addr)
	}

	return &chromeTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dial(ctx, network, addr)
			},
		},
		h1: &http.Transport{
			DialTLSContext:    dial,
			ForceAttemptHTTP2: false,
		},
	}
}

// chromeTransport tries HTTP/2 first and remembers hosts that could not
// serve it, sending their later requests straight to HTTP/1.1.
type chromeTransport struct {
	h2 http.RoundTripper
	h1 http.RoundTripper

	h1Only sync.Map // host -> struct{}
}

// RoundTrip implements http.RoundTripper.
func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Host
	if _, ok := t.h1Only.Load(host); ok {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	if req.Context().Err() != nil {
		return nil, err
	}

	retry, rerr := rewind(req)
	if rerr != nil {
		return nil, fmt.Errorf("h2 failed (%v) and request body cannot be replayed: %w", err, rerr)
	}
	t.h1Only.Store(host, struct{}{})
	return t.h1.RoundTrip(retry)
}

// rewind returns a copy of req with a fresh body for a second attempt.
func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("no GetBody")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}

// dialChromeTLS dials addr and completes a uTLS handshake offering h2 and
// http/1.1 with SNI set to the host.
func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return tlsConn, nil
}
