package dialer

import (
	"github.com/frankli0324/go-restkit/internal/dialer"
)

// Dialers are responsible for opening the raw streams requests are written
// to and responses are read from: a TCP connection, wrapped in TLS for https
// origins, possibly tunneled through a proxy.
//
// A Dialer MUST NOT hold connection state. Idle connections belong to the
// pool of the [restkit.Client], so a Dialer can be swapped out without
// pain. It SHOULD hold the connection related configs like [ProxyConfig]
// or *[crypto/tls.Config].
type Dialer = dialer.Dialer

// CoreDialer is the default implementation of the [Dialer] interface. It is
// used by a zero value Client, with the DNS timeout of the client config.
type CoreDialer = dialer.CoreDialer

// ProxyConfig tunes how proxies returned by [CoreDialer.GetProxy] are
// reached. http and https proxies are tunneled through CONNECT, socks5 and
// socks5h ones through golang.org/x/net/proxy.
type ProxyConfig = dialer.ProxyConfig

// we need a dedicated resolver for two scenarios:
//
//  1. Resolve remote address locally in proxied requests
//  2. to customize the DNS server used for resolving hostname
//
// the standard library didn't provide a intuitive way of
// setting DNS server addresses since it only follows the
// system configuration (e.g. /etc/resolv.conf), leaving us only
// one option of using [net.Resolver.Dial] hook with a Go Resolver.
//
// this part of code tries to take advantage of that
// only option as far as possible to provide a relativly
// intuitive configuration API.
type ResolveConfig = dialer.ResolveConfig
