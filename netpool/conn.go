package netpool

import (
	"net"
	"sync/atomic"
)

// Conn is a checked out connection. Exactly one of Release and Invalidate
// takes effect, later calls are no-ops.
type Conn interface {
	Raw() net.Conn
	// Reused reports whether the connection was taken from the idle list.
	Reused() bool
	// Release hands the connection back for reuse.
	Release()
	// Invalidate closes the connection.
	Invalidate()
}

type conn struct {
	raw    net.Conn
	p      *Pool
	reused bool
	done   atomic.Bool
}

func (c *conn) Raw() net.Conn { return c.raw }
func (c *conn) Reused() bool  { return c.reused }

func (c *conn) Release() {
	if !c.done.Swap(true) {
		c.p.release(c)
	}
}

func (c *conn) Invalidate() {
	if !c.done.Swap(true) {
		c.p.invalidate(c)
	}
}

type unpooled struct {
	raw  net.Conn
	done atomic.Bool
}

// Unpooled wraps a connection that belongs to no pool, like a proxy tunnel
// being set up. Release leaves it open for the owner, Invalidate closes it.
func Unpooled(raw net.Conn) Conn {
	return &unpooled{raw: raw}
}

func (c *unpooled) Raw() net.Conn { return c.raw }
func (c *unpooled) Reused() bool  { return false }
func (c *unpooled) Release()      { c.done.Store(true) }

func (c *unpooled) Invalidate() {
	if !c.done.Swap(true) {
		c.raw.Close()
	}
}
