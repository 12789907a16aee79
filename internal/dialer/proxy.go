package dialer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/url"

	xproxy "golang.org/x/net/proxy"

	"github.com/frankli0324/go-restkit/internal/conn"
	"github.com/frankli0324/go-restkit/internal/errs"
	"github.com/frankli0324/go-restkit/internal/model"
	"github.com/frankli0324/go-restkit/internal/transport"
	"github.com/frankli0324/go-restkit/netpool"
)

type ProxyConfig struct {
	TLSConfig      *tls.Config // the [*tls.Config] to use with proxy, if nil, *[CoreDialer.TLSConfig] will be used
	ResolveLocally bool
	ResolveConfig  *ResolveConfig // overrides the resolver config for dialer for proxy
}

func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	return &ProxyConfig{
		TLSConfig:      c.TLSConfig.Clone(),
		ResolveLocally: c.ResolveLocally,
		ResolveConfig:  c.ResolveConfig.Clone(),
	}
}

var (
	h1Transport = transport.HTTP1{}
)

func (d *CoreDialer) tryDialProxy(ctx context.Context, key netpool.Key) (net.Conn, error) {
	if d.GetProxy != nil {
		proxy, perr := d.GetProxy(ctx, key)
		if perr != nil {
			return nil, perr
		}
		if proxy != "" {
			proxyU, perr := url.Parse(proxy)
			if perr != nil {
				return nil, perr
			}
			return d.DialContextOverProxy(ctx, key, proxyU)
		}
	}
	return nil, nil
}

// DialContextOverProxy creates a connection over http/socks proxy.
// This part of logic may be reused when wrapping *[CoreDialer] into
// a new custom [Dialer]
func (d *CoreDialer) DialContextOverProxy(ctx context.Context, remote netpool.Key, proxy *url.URL) (net.Conn, error) {
	port := proxy.Port()
	if port == "" {
		port = schemes[proxy.Scheme]
	}
	hp := net.JoinHostPort(proxy.Hostname(), port)

	switch proxy.Scheme {
	case "http", "https":
	case "socks5", "socks5h":
		return d.dialSOCKS5(ctx, remote, proxy, hp)
	default:
		return nil, errors.New("unsupported proxy scheme: " + proxy.Scheme)
	}

	raw, err := zeroDialer.DialContext(ctx, "tcp", hp)
	if err != nil {
		return nil, &errs.TransportError{Op: "dial", Addr: hp, Err: err}
	}
	if proxy.Scheme == "https" {
		var tlsCfg *tls.Config
		if d.ProxyConfig != nil {
			tlsCfg = d.ProxyConfig.TLSConfig
		}
		if tlsCfg == nil {
			tlsCfg = d.TLSConfig
		}
		if raw, err = d.handshake(ctx, raw, netpool.Key{Host: proxy.Hostname(), Port: port, SSL: true}, tlsCfg); err != nil {
			return nil, err
		}
	}

	addr, err := d.proxyTarget(ctx, remote, false)
	if err != nil {
		raw.Close()
		return nil, err
	}
	header := model.H("Host", remote.Addr())
	if proxy.User != nil {
		pass, _ := proxy.User.Password()
		header.Add("Proxy-Authorization", model.BasicAuth(proxy.User.Username(), pass))
	}
	connReq, err := (&model.Request{
		Method: "CONNECT",
		URL:    "http://" + addr,
		Header: header,
	}).Prepare()
	if err != nil {
		raw.Close()
		return nil, err
	}

	c := conn.New(netpool.Unpooled(raw), netpool.Key{Host: proxy.Hostname(), Port: port}, 0)
	c.Bind(ctx)
	if err := h1Transport.Write(c, connReq); err != nil {
		c.Close()
		return nil, err
	}
	resp := &model.Response{}
	if err := h1Transport.Read(c, connReq, resp); err != nil {
		c.Close()
		return nil, err
	}
	if resp.StatusCode != 200 {
		s, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.Close()
		return nil, &errs.TransportError{
			Op: "proxy", Addr: hp,
			Err: fmt.Errorf("proxy server returned error. status:%d, body:%s", resp.StatusCode, string(s)),
		}
	}
	c.Release(false)
	return raw, nil
}

func (d *CoreDialer) dialSOCKS5(ctx context.Context, remote netpool.Key, proxy *url.URL, hp string) (net.Conn, error) {
	var auth *xproxy.Auth
	if proxy.User != nil {
		pass, _ := proxy.User.Password()
		auth = &xproxy.Auth{User: proxy.User.Username(), Password: pass}
	}
	sd, err := xproxy.SOCKS5("tcp", hp, auth, &zeroDialer)
	if err != nil {
		return nil, err
	}
	addr, err := d.proxyTarget(ctx, remote, proxy.Scheme == "socks5")
	if err != nil {
		return nil, err
	}
	raw, err := sd.(xproxy.ContextDialer).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &errs.TransportError{Op: "dial", Addr: hp, Err: err}
	}
	return raw, nil
}

// proxyTarget is the host:port the proxy is asked to connect to. The name
// is resolved here instead of by the proxy when configured so.
func (d *CoreDialer) proxyTarget(ctx context.Context, remote netpool.Key, resolve bool) (string, error) {
	addr := remote.Host
	if resolve || d.ProxyConfig != nil && d.ProxyConfig.ResolveLocally {
		dnsCfg := d.ResolveConfig
		if d.ProxyConfig != nil && d.ProxyConfig.ResolveConfig != nil {
			dnsCfg = d.ProxyConfig.ResolveConfig.Merge(d.ResolveConfig)
		}
		addrs, err := d.resolve(ctx, dnsCfg, addr)
		if err != nil {
			return "", err
		}
		addr = addrs[rand.Intn(len(addrs))]
	}
	return net.JoinHostPort(addr, remote.Port), nil
}
