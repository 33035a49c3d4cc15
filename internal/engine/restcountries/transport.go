package restcountries

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	utls "github.com/refraction-networking/utls"
)

// browserDialer opens TLS connections that present a Chrome ClientHello.
type browserDialer struct {
	net.Dialer
}

// helloSpec is Chrome's current hello with ALPN pinned to http/1.1;
// http.Transport does not speak h2 over a custom DialTLSContext.
func helloSpec() (utls.ClientHelloSpec, error) {
	spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
	if err != nil {
		return spec, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	return spec, nil
}

func (d *browserDialer) DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error) {
	spec, err := helloSpec()
	if err != nil {
		return nil, err
	}

	raw, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	serverName, _, err := net.SplitHostPort(addr)
	if err != nil {
		serverName = addr
	}

	conn := utls.UClient(raw, &utls.Config{ServerName: serverName}, utls.HelloCustom)
	if err = conn.ApplyPreset(&spec); err == nil {
		err = conn.HandshakeContext(ctx)
	}
	if err != nil {
		raw.Close()
		return nil, err
	}
	return conn, nil
}

// newTransport uses the browser hello for direct connections and the
// standard TLS stack through a proxy.
func newTransport(proxyURL string) *http.Transport {
	d := &browserDialer{Dialer: net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}}

	tr := &http.Transport{
		DialContext:         d.DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			tr.Proxy = http.ProxyURL(parsed)
			tr.TLSClientConfig = &tls.Config{}
			return tr
		}
	}
	tr.DialTLSContext = d.DialTLSContext
	return tr
}
