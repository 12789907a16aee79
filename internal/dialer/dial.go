package dialer

import (
	"context"
	"crypto/tls"
	"errors"
	"net"

	"github.com/frankli0324/go-restkit/internal/errs"
	"github.com/frankli0324/go-restkit/netpool"
)

var schemes = map[string]string{
	"http": "80", "https": "443", "socks5": "1080", "socks5h": "1080",
}

var zeroDialer net.Dialer

func (d *CoreDialer) Dial(ctx context.Context, key netpool.Key) (net.Conn, error) {
	conn, err := d.tryDialProxy(ctx, key)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		if conn, err = d.dialDirect(ctx, key); err != nil {
			return nil, err
		}
	}
	if key.SSL {
		return d.handshake(ctx, conn, key, d.TLSConfig)
	}
	return conn, nil
}

func (d *CoreDialer) dialDirect(ctx context.Context, key netpool.Key) (net.Conn, error) {
	network := "tcp"
	if d.ResolveConfig != nil {
		switch d.ResolveConfig.Network {
		case "ip4":
			network = "tcp4"
		case "ip6":
			network = "tcp6"
		}
	}
	addrs, err := d.resolve(ctx, d.ResolveConfig, key.Host)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, addr := range addrs {
		conn, err := zeroDialer.DialContext(ctx, network, net.JoinHostPort(addr, key.Port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &errs.TransportError{Op: "dial", Addr: key.Addr(), Err: lastErr}
}

// handshake runs a TLS handshake over conn, offering http/1.1 only.
func (d *CoreDialer) handshake(ctx context.Context, conn net.Conn, key netpool.Key, cfg *tls.Config) (net.Conn, error) {
	config := cfg.Clone()
	if config == nil {
		config = &tls.Config{}
	}
	if config.ServerName == "" {
		config.ServerName = key.Host
	}
	config.NextProtos = []string{"http/1.1"}
	c := tls.Client(conn, config)
	if err := c.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, &errs.TransportError{Op: "tls", Addr: key.Addr(), Err: err}
	}
	if p := c.ConnectionState().NegotiatedProtocol; p != "" && p != "http/1.1" {
		c.Close()
		return nil, &errs.TransportError{Op: "tls", Addr: key.Addr(), Err: errors.New("server negotiated " + p)}
	}
	return c, nil
}
