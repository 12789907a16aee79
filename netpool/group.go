// Package netpool keeps persistent connections keyed by origin.
package netpool

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"
)

// Key identifies an origin. Connections are only shared between requests
// with equal keys.
type Key struct {
	Host string
	Port string
	SSL  bool
}

func (k Key) Addr() string { return net.JoinHostPort(k.Host, k.Port) }

func (k Key) String() string {
	return k.Addr() + "/ssl=" + strconv.FormatBool(k.SSL)
}

// DialFunc opens a new connection to the origin of key.
type DialFunc func(ctx context.Context, key Key) (net.Conn, error)

// Acquirer is what the client needs from a pool.
type Acquirer interface {
	Acquire(ctx context.Context, key Key, fresh bool) (Conn, error)
}

type PoolGroup struct {
	sync.RWMutex
	pools map[Key]*Pool
	dial  DialFunc

	maxConnsPerHost, maxIdlePerHost uint
	idleTimeout                     time.Duration
}

func NewGroup(maxConnsPerHost, maxIdlePerHost uint, idleTimeout time.Duration, dial DialFunc) *PoolGroup {
	return &PoolGroup{
		pools: map[Key]*Pool{},
		dial:  dial,

		maxConnsPerHost: maxConnsPerHost, maxIdlePerHost: maxIdlePerHost,
		idleTimeout: idleTimeout,
	}
}

// Acquire returns a connection to key, dialing when no usable idle one is
// left or fresh is set.
func (g *PoolGroup) Acquire(ctx context.Context, key Key, fresh bool) (Conn, error) {
	return g.pool(key).Acquire(ctx, g.dial, fresh)
}

func (g *PoolGroup) pool(key Key) *Pool {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if ok {
		return p
	}
	g.Lock()
	defer g.Unlock()
	if p, ok = g.pools[key]; !ok {
		p = NewPool(key, g.maxIdlePerHost, g.maxConnsPerHost, g.idleTimeout)
		g.pools[key] = p
	}
	return p
}

// Idle reports the number of idle connections kept for key.
func (g *PoolGroup) Idle(key Key) int {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if !ok {
		return 0
	}
	return p.Idle()
}

func (g *PoolGroup) CloseIdle() {
	g.RLock()
	defer g.RUnlock()
	for _, p := range g.pools {
		p.CloseIdle()
	}
}
