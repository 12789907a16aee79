package dialer

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/frankli0324/go-restkit/netpool"
)

// Dialers handle pretty much everything related to the actual connection,
// including setting a proxy for each origin, setting resolvers, etc.
type Dialer interface {
	// Dial opens a connection to the origin of key, TLS included when
	// key.SSL is set.
	Dial(ctx context.Context, key netpool.Key) (net.Conn, error)
}

type CoreDialer struct {
	ResolveConfig *ResolveConfig
	// DNSTimeout bounds name resolution, zero means no bound beyond ctx.
	DNSTimeout time.Duration

	TLSConfig *tls.Config // the config to use

	// GetProxy returns the proxy URL for an origin, "" for a direct
	// connection. http, https, socks5 and socks5h proxies are supported.
	GetProxy    func(ctx context.Context, key netpool.Key) (string, error)
	ProxyConfig *ProxyConfig
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: d.ResolveConfig.Clone(),
		DNSTimeout:    d.DNSTimeout,
		TLSConfig:     d.TLSConfig.Clone(),
		GetProxy:      d.GetProxy,
		ProxyConfig:   d.ProxyConfig.Clone(),
	}
}
