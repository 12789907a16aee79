// Package conn wraps a pooled connection with the primitives the request
// writer and response reader need: buffered writes, chunk framing, reads
// with deadlines, and release back to the pool.
package conn

import (
	"bufio"
	"context"
	"errors"
	"io"
	"iter"
	"net"
	"time"

	"github.com/frankli0324/go-restkit/internal/config"
	"github.com/frankli0324/go-restkit/internal/errs"
	"github.com/frankli0324/go-restkit/internal/transport/chunked"
	"github.com/frankli0324/go-restkit/netpool"
)

type State uint8

const (
	StateIdle State = iota
	StateSending
	StateReceiving
	StateReleased
	StateInvalidated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateReceiving:
		return "receiving"
	case StateReleased:
		return "released"
	case StateInvalidated:
		return "invalidated"
	}
	return "unknown"
}

var errReleased = errors.New("use of released connection")

// Connection is owned by one request at a time. Every I/O failure
// invalidates it and comes back as *errs.TransportError.
type Connection struct {
	Key netpool.Key

	pc     netpool.Conn // nil once released or invalidated
	raw    net.Conn
	reused bool
	state  State

	w  *bufio.Writer
	cw *chunked.Writer
	r  *bufio.Reader

	timeout time.Duration
	read    int64
	stop    func() bool

	// OnInvalidate is called once when the connection gets dropped.
	OnInvalidate func(err error)
}

// New takes ownership of pc. timeout bounds each socket read and write,
// zero disables it.
func New(pc netpool.Conn, key netpool.Key, timeout time.Duration) *Connection {
	c := &Connection{Key: key, pc: pc, raw: pc.Raw(), reused: pc.Reused(), timeout: timeout}
	c.w = bufio.NewWriterSize(wire{c}, config.BlockSize)
	c.cw = chunked.NewChunkedWriter(c.w)
	c.r = bufio.NewReader(reader{c})
	return c
}

// Bind aborts pending I/O when ctx is done, until the connection is
// released.
func (c *Connection) Bind(ctx context.Context) {
	if c.stop != nil {
		c.stop()
	}
	c.stop = context.AfterFunc(ctx, func() {
		c.raw.SetDeadline(time.Unix(1, 0))
	})
}

func (c *Connection) State() State { return c.state }

// Reused reports whether the connection came out of the idle pool.
func (c *Connection) Reused() bool { return c.reused }

// ResponseStarted reports whether any byte was read from the peer.
func (c *Connection) ResponseStarted() bool { return c.read > 0 }

// Reader is the buffered read side, shared by all reads of one response.
func (c *Connection) Reader() *bufio.Reader { return c.r }

// Send buffers p for writing. Buffers are written out when full and on
// Flush.
func (c *Connection) Send(p []byte) error {
	if err := c.begin(StateSending); err != nil {
		return err
	}
	if _, err := c.w.Write(p); err != nil {
		return c.Fail("write", err)
	}
	return nil
}

// SendChunk frames p as one chunk. An empty p writes the terminating
// zero-length chunk.
func (c *Connection) SendChunk(p []byte) error {
	if err := c.begin(StateSending); err != nil {
		return err
	}
	var err error
	if len(p) == 0 {
		err = c.cw.Close()
	} else {
		_, err = c.cw.Write(p)
	}
	if err != nil {
		return c.Fail("write", err)
	}
	return nil
}

// SendStream copies r in blocks until io.EOF, as chunks when chunked is
// set. Errors of r are returned as they are, the connection is dropped
// anyway since the request is cut short.
func (c *Connection) SendStream(r io.Reader, chunked bool) error {
	buf := make([]byte, config.BlockSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if err := c.sendBlock(buf[:n], chunked); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			c.Close()
			return rerr
		}
	}
	if chunked {
		return c.SendChunk(nil)
	}
	return nil
}

// SendSeq forwards every element of seq, split in blocks. Empty elements
// are skipped in chunked mode since they would end the body.
func (c *Connection) SendSeq(seq iter.Seq[[]byte], chunked bool) error {
	var err error
	seq(func(p []byte) bool {
		for len(p) > 0 {
			n := min(len(p), config.BlockSize)
			if err = c.sendBlock(p[:n], chunked); err != nil {
				return false
			}
			p = p[n:]
		}
		return true
	})
	if err != nil {
		return err
	}
	if chunked {
		return c.SendChunk(nil)
	}
	return nil
}

func (c *Connection) sendBlock(p []byte, chunked bool) error {
	if chunked {
		return c.SendChunk(p)
	}
	return c.Send(p)
}

// Flush writes out everything buffered. The request is complete after it.
func (c *Connection) Flush() error {
	if err := c.begin(StateSending); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return c.Fail("write", err)
	}
	return nil
}

func (c *Connection) begin(s State) error {
	if c.pc == nil {
		return &errs.TransportError{Op: "write", Addr: c.Key.Addr(), Err: errReleased}
	}
	c.state = s
	return nil
}

// Release hands the connection back to the pool, or drops it when
// shouldClose is set or unread bytes are left in the buffer. It is a no-op
// on a released connection.
func (c *Connection) Release(shouldClose bool) {
	if c.pc == nil {
		return
	}
	if shouldClose || c.r.Buffered() > 0 {
		c.Close()
		return
	}
	if c.stop != nil && !c.stop() {
		// the context fired and poisoned the deadline
		c.Close()
		return
	}
	c.raw.SetDeadline(time.Time{})
	c.pc.Release()
	c.pc, c.state = nil, StateReleased
}

// Close drops the connection. It is a no-op on a released connection.
func (c *Connection) Close() error {
	c.invalidate(nil)
	return nil
}

func (c *Connection) invalidate(cause error) {
	if c.pc == nil {
		return
	}
	if c.stop != nil {
		c.stop()
	}
	c.pc.Invalidate()
	c.pc, c.state = nil, StateInvalidated
	if c.OnInvalidate != nil {
		c.OnInvalidate(cause)
	}
}

// Fail drops the connection and describes err as a transport failure of op.
func (c *Connection) Fail(op string, err error) error {
	var te *errs.TransportError
	if errors.As(err, &te) {
		c.invalidate(err)
		return err
	}
	te = &errs.TransportError{
		Op: op, Addr: c.Key.Addr(),
		Reused:          c.reused,
		ResponseStarted: c.read > 0,
		Err:             err,
	}
	c.invalidate(te)
	return te
}

type wire struct{ c *Connection }

func (w wire) Write(p []byte) (int, error) {
	if w.c.timeout > 0 {
		w.c.raw.SetWriteDeadline(time.Now().Add(w.c.timeout))
	}
	return w.c.raw.Write(p)
}

type reader struct{ c *Connection }

// Read counts what arrives and leaves io.EOF unwrapped, whether it ends the
// message depends on the framing.
func (r reader) Read(p []byte) (int, error) {
	c := r.c
	if c.pc == nil {
		return 0, &errs.TransportError{Op: "read", Addr: c.Key.Addr(), Err: errReleased}
	}
	c.state = StateReceiving
	if c.timeout > 0 {
		c.raw.SetReadDeadline(time.Now().Add(c.timeout))
	}
	n, err := c.raw.Read(p)
	c.read += int64(n)
	if err != nil && err != io.EOF {
		return n, c.Fail("read", err)
	}
	return n, err
}
