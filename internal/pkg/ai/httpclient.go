package ai

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// newHTTPClient returns a pooled client for one provider instance, routed through
// proxyURL when it is set. Deadlines come from the request context.
func newHTTPClient(proxyURL string) (*http.Client, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("default transport is not *http.Transport")
	}
	cloned := transport.Clone()
	cloned.MaxIdleConns = 10
	cloned.MaxIdleConnsPerHost = 5
	cloned.IdleConnTimeout = 90 * time.Second

	if proxyURL == "" {
		return &http.Client{Transport: cloned}, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		cloned.Proxy = http.ProxyURL(u)
	case "socks", "socks5":
		socksDialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("invalid socks proxy: %w", err)
		}
		cloned.Proxy = nil
		if cd, ok := socksDialer.(proxy.ContextDialer); ok {
			cloned.DialContext = cd.DialContext
		} else {
			cloned.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return socksDialer.Dial(network, addr)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}

	return &http.Client{Transport: cloned}, nil
}
