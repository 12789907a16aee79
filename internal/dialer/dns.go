package dialer

import (
	"context"
	"net"

	"github.com/frankli0324/go-restkit/internal/errs"
)

type ResolveConfig struct {
	CustomDNSServer string
	Network         string            // one of "ip4", "ip6", default is "ip"
	StaticHosts     map[string]string // resembles /etc/hosts
}

func (c *ResolveConfig) Clone() *ResolveConfig {
	if c == nil {
		return nil
	}
	return &ResolveConfig{
		CustomDNSServer: c.CustomDNSServer,
		Network:         c.Network,
		StaticHosts:     c.StaticHosts,
	}
}

// Merge fills the unset fields of c from base. Static hosts of c win.
func (c *ResolveConfig) Merge(base *ResolveConfig) *ResolveConfig {
	if c == nil {
		return base.Clone()
	}
	out := c.Clone()
	if base == nil {
		return out
	}
	if out.CustomDNSServer == "" {
		out.CustomDNSServer = base.CustomDNSServer
	}
	if out.Network == "" {
		out.Network = base.Network
	}
	if len(base.StaticHosts) > 0 {
		hosts := make(map[string]string, len(base.StaticHosts)+len(out.StaticHosts))
		for k, v := range base.StaticHosts {
			hosts[k] = v
		}
		for k, v := range out.StaticHosts {
			hosts[k] = v
		}
		out.StaticHosts = hosts
	}
	return out
}

// this type should not be used outside this file.
// prevents non-custom DNS server contexts to iterate through all keys
type dnsServerCtx struct {
	context.Context
	server string
}

var dnsServerCtxKey = &dnsServerCtx{nil, "dns-server"} // non-nil pointer to any object, definitely unique

func (c dnsServerCtx) Value(key interface{}) interface{} {
	if key == dnsServerCtxKey {
		return c.server
	}
	return c.Context.Value(key)
}

var customServerResolver = net.Resolver{
	PreferGo: true,
	Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		if v, ok := ctx.Value(dnsServerCtxKey).(string); ok && v != "" {
			return zeroDialer.DialContext(ctx, network, v)
		}
		return zeroDialer.DialContext(ctx, network, address)
	},
}

// resolve returns the addresses to try for host: a static entry, the host
// itself when it is an IP literal, or the DNS answer. The lookup is bounded
// by DNSTimeout.
func (d *CoreDialer) resolve(ctx context.Context, cfg *ResolveConfig, host string) ([]string, error) {
	if cfg != nil {
		if static, ok := cfg.StaticHosts[host]; ok {
			return []string{static}, nil
		}
	}
	if net.ParseIP(host) != nil {
		return []string{host}, nil
	}
	if d.DNSTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.DNSTimeout)
		defer cancel()
	}
	ips, err := d.lookup(ctx, cfg, host)
	if err == nil && len(ips) == 0 {
		err = &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	if err != nil {
		return nil, &errs.TransportError{Op: "resolve", Addr: host, Err: err}
	}
	addrs := make([]string, len(ips))
	for i, ip := range ips {
		addrs[i] = ip.String()
	}
	return addrs, nil
}

func (d *CoreDialer) lookup(ctx context.Context, cfg *ResolveConfig, host string) (result []net.IP, err error) {
	if cfg == nil {
		return d.LookupIPServer(ctx, "ip", host, "")
	}
	network := cfg.Network
	if network == "" {
		network = "ip"
	}
	return d.LookupIPServer(ctx, network, host, cfg.CustomDNSServer)
}

// LookupIPServer performs DNS lookup for a host on a custom dns server,
// it calls [net.Resolver.LookupIP] with a Go Resolver behind the scenes.
// An empty dns uses the system resolver.
func (d *CoreDialer) LookupIPServer(ctx context.Context, network, host, dns string) ([]net.IP, error) {
	if dns == "" {
		return net.DefaultResolver.LookupIP(ctx, network, host)
	}
	return customServerResolver.LookupIP(dnsServerCtx{ctx, dns}, network, host)
}
