package dialer_test

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/binary"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-restkit/internal/dialer"
	"github.com/frankli0324/go-restkit/internal/errs"
	"github.com/frankli0324/go-restkit/netpool"
)

// echoServer echoes every accepted connection back.
func echoServer(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				io.Copy(c, c)
			}()
		}
	}()
	return l.Addr().String()
}

func ping(t *testing.T, c net.Conn) {
	t.Helper()
	defer c.Close()
	_, err := c.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	c.SetReadDeadline(time.Now().Add(time.Second))
	_, err = io.ReadFull(c, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}

func TestDialStaticHost(t *testing.T) {
	_, port, _ := net.SplitHostPort(echoServer(t))
	d := &dialer.CoreDialer{ResolveConfig: &dialer.ResolveConfig{
		StaticHosts: map[string]string{"echo.test": "127.0.0.1"},
	}}
	c, err := d.Dial(t.Context(), netpool.Key{Host: "echo.test", Port: port})
	require.NoError(t, err)
	ping(t, c)
}

func TestDialIPLiteral(t *testing.T) {
	host, port, _ := net.SplitHostPort(echoServer(t))
	c, err := (&dialer.CoreDialer{}).Dial(t.Context(), netpool.Key{Host: host, Port: port})
	require.NoError(t, err)
	ping(t, c)
}

func TestDialRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, _ := net.SplitHostPort(l.Addr().String())
	l.Close()

	_, err = (&dialer.CoreDialer{}).Dial(t.Context(), netpool.Key{Host: host, Port: port})
	var te *errs.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "dial", te.Op)
	assert.False(t, te.Reused)
}

func TestResolveBoundedByDNSTimeout(t *testing.T) {
	// a DNS server that never answers
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	d := &dialer.CoreDialer{
		DNSTimeout:    50 * time.Millisecond,
		ResolveConfig: &dialer.ResolveConfig{CustomDNSServer: pc.LocalAddr().String()},
	}
	start := time.Now()
	_, err = d.Dial(t.Context(), netpool.Key{Host: "slow.example", Port: "80"})
	var te *errs.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "resolve", te.Op)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDialTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()
	host, port, _ := net.SplitHostPort(srv.Listener.Addr().String())

	d := &dialer.CoreDialer{TLSConfig: srv.Client().Transport.(*http.Transport).TLSClientConfig}
	c, err := d.Dial(t.Context(), netpool.Key{Host: host, Port: port, SSL: true})
	require.NoError(t, err)
	defer c.Close()
	tc, ok := c.(*tls.Conn)
	require.True(t, ok)
	assert.True(t, tc.ConnectionState().HandshakeComplete)
}

func TestDialTLSUntrusted(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()
	host, port, _ := net.SplitHostPort(srv.Listener.Addr().String())

	_, err := (&dialer.CoreDialer{}).Dial(t.Context(), netpool.Key{Host: host, Port: port, SSL: true})
	var te *errs.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "tls", te.Op)
}

// connectProxy answers CONNECT requests and then splices to the target.
func connectProxy(t *testing.T, status int, seen chan<- *http.Request) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				req, err := http.ReadRequest(bufio.NewReader(c))
				if err != nil {
					return
				}
				seen <- req
				if status != 200 {
					io.WriteString(c, "HTTP/1.1 407 Proxy Authentication Required\r\nContent-Length: 6\r\n\r\ndenied")
					return
				}
				up, err := net.Dial("tcp", req.RequestURI)
				if err != nil {
					io.WriteString(c, "HTTP/1.1 502 Bad Gateway\r\nContent-Length: 0\r\n\r\n")
					return
				}
				defer up.Close()
				io.WriteString(c, "HTTP/1.1 200 Connection established\r\n\r\n")
				go io.Copy(up, c)
				io.Copy(c, up)
			}()
		}
	}()
	return l.Addr().String()
}

func TestDialOverHTTPProxy(t *testing.T) {
	_, port, _ := net.SplitHostPort(echoServer(t))
	seen := make(chan *http.Request, 1)
	proxyAddr := connectProxy(t, 200, seen)

	d := &dialer.CoreDialer{
		GetProxy: func(context.Context, netpool.Key) (string, error) {
			return "http://user:pass@" + proxyAddr, nil
		},
		ResolveConfig: &dialer.ResolveConfig{StaticHosts: map[string]string{"echo.test": "127.0.0.1"}},
		ProxyConfig:   &dialer.ProxyConfig{ResolveLocally: true},
	}
	c, err := d.Dial(t.Context(), netpool.Key{Host: "echo.test", Port: port})
	require.NoError(t, err)
	ping(t, c)

	req := <-seen
	assert.Equal(t, http.MethodConnect, req.Method)
	assert.Equal(t, "127.0.0.1:"+port, req.RequestURI)
	assert.Equal(t, "Basic dXNlcjpwYXNz", req.Header.Get("Proxy-Authorization"))
}

func TestHTTPProxyRefuses(t *testing.T) {
	seen := make(chan *http.Request, 1)
	proxyAddr := connectProxy(t, 407, seen)
	d := &dialer.CoreDialer{
		GetProxy: func(context.Context, netpool.Key) (string, error) { return "http://" + proxyAddr, nil },
	}
	_, err := d.Dial(t.Context(), netpool.Key{Host: "example.com", Port: "80"})
	var te *errs.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "proxy", te.Op)
	assert.ErrorContains(t, err, "status:407")
	<-seen
}

func TestUnsupportedProxyScheme(t *testing.T) {
	d := &dialer.CoreDialer{
		GetProxy: func(context.Context, netpool.Key) (string, error) { return "ftp://127.0.0.1:21", nil },
	}
	_, err := d.Dial(t.Context(), netpool.Key{Host: "example.com", Port: "80"})
	assert.ErrorContains(t, err, "unsupported proxy scheme")
}

// socksProxy implements the no-auth CONNECT subset of SOCKS5 for IPv4
// targets and reports the requested address.
func socksProxy(t *testing.T, seen chan<- string) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				hello := make([]byte, 2)
				if _, err := io.ReadFull(c, hello); err != nil {
					return
				}
				io.ReadFull(c, make([]byte, hello[1]))
				c.Write([]byte{5, 0})

				head := make([]byte, 4)
				if _, err := io.ReadFull(c, head); err != nil || head[3] != 1 {
					return
				}
				addr := make([]byte, 6)
				io.ReadFull(c, addr)
				target := net.JoinHostPort(net.IP(addr[:4]).String(), strconv.Itoa(int(binary.BigEndian.Uint16(addr[4:]))))
				seen <- target
				up, err := net.Dial("tcp", target)
				if err != nil {
					c.Write([]byte{5, 5, 0, 1, 0, 0, 0, 0, 0, 0})
					return
				}
				defer up.Close()
				c.Write([]byte{5, 0, 0, 1, 0, 0, 0, 0, 0, 0})
				go io.Copy(up, c)
				io.Copy(c, up)
			}()
		}
	}()
	return l.Addr().String()
}

func TestDialOverSOCKS5(t *testing.T) {
	_, port, _ := net.SplitHostPort(echoServer(t))
	seen := make(chan string, 1)
	proxyAddr := socksProxy(t, seen)

	d := &dialer.CoreDialer{
		GetProxy: func(context.Context, netpool.Key) (string, error) {
			return "socks5://" + proxyAddr, nil
		},
		ResolveConfig: &dialer.ResolveConfig{StaticHosts: map[string]string{"echo.test": "127.0.0.1"}},
	}
	c, err := d.Dial(t.Context(), netpool.Key{Host: "echo.test", Port: port})
	require.NoError(t, err)
	ping(t, c)
	assert.Equal(t, "127.0.0.1:"+port, <-seen)
}

func TestResolveConfigMerge(t *testing.T) {
	base := &dialer.ResolveConfig{
		CustomDNSServer: "1.1.1.1:53",
		StaticHosts:     map[string]string{"a": "1", "b": "2"},
	}
	over := &dialer.ResolveConfig{Network: "ip4", StaticHosts: map[string]string{"b": "3"}}
	got := over.Merge(base)
	assert.Equal(t, &dialer.ResolveConfig{
		CustomDNSServer: "1.1.1.1:53",
		Network:         "ip4",
		StaticHosts:     map[string]string{"a": "1", "b": "3"},
	}, got)
	assert.Equal(t, "2", base.StaticHosts["b"])
}
