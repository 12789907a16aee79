package netpool

import (
	"context"
	"net"
	"sync"
	"time"
)

// Pool keeps the connections of one origin. Only checked out connections hold
// a ticket, idle ones are bounded by maxIdle.
type Pool struct {
	key Key

	connTicket  chan struct{}
	maxIdle     int
	idleTimeout time.Duration

	mu   sync.Mutex
	idle []idleConn
}

type idleConn struct {
	raw   net.Conn
	since time.Time
}

func NewPool(key Key, maxIdle, maxConn uint, idleTimeout time.Duration) *Pool {
	if maxConn == 0 {
		maxConn = 1
	}
	return &Pool{
		key:         key,
		connTicket:  make(chan struct{}, maxConn),
		maxIdle:     int(maxIdle),
		idleTimeout: idleTimeout,
	}
}

// Acquire waits for a ticket, then hands out the most recently released idle
// connection that is still usable, or dials a new one. fresh skips the idle
// list.
func (p *Pool) Acquire(ctx context.Context, dial DialFunc, fresh bool) (Conn, error) {
	select {
	case p.connTicket <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if !fresh {
		for {
			ic, ok := p.popIdle()
			if !ok {
				break
			}
			if p.idleTimeout > 0 && time.Since(ic.since) > p.idleTimeout || !alive(ic.raw) {
				ic.raw.Close()
				continue
			}
			return &conn{raw: ic.raw, p: p, reused: true}, nil
		}
	}
	raw, err := dial(ctx, p.key)
	if err != nil {
		<-p.connTicket
		return nil, err
	}
	return &conn{raw: raw, p: p}, nil
}

func (p *Pool) popIdle() (idleConn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.idle)
	if n == 0 {
		return idleConn{}, false
	}
	c := p.idle[n-1]
	p.idle = p.idle[:n-1]
	return c, true
}

// release parks c before giving the ticket back, so a waiter woken by the
// ticket finds it.
func (p *Pool) release(c *conn) {
	defer func() { <-p.connTicket }()
	p.mu.Lock()
	if len(p.idle) < p.maxIdle {
		p.idle = append(p.idle, idleConn{raw: c.raw, since: time.Now()})
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	c.raw.Close()
}

func (p *Pool) invalidate(c *conn) {
	c.raw.Close()
	<-p.connTicket
}

// Idle reports the number of idle connections.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// CloseIdle closes every idle connection. Checked out ones are not affected.
func (p *Pool) CloseIdle() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, c := range idle {
		c.raw.Close()
	}
}
