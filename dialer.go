package restkit

import (
	"github.com/frankli0324/go-restkit/internal/dialer"
	"github.com/frankli0324/go-restkit/netpool"
)

type Dialer = dialer.Dialer
type CoreDialer = dialer.CoreDialer

type ProxyConfig = dialer.ProxyConfig
type ResolveConfig = dialer.ResolveConfig

// PoolKey identifies the origin a pooled connection belongs to.
type PoolKey = netpool.Key
