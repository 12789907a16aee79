package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/frankli0324/go-restkit/internal/conn"
	"github.com/frankli0324/go-restkit/internal/errs"
	"github.com/frankli0324/go-restkit/internal/model"
	"github.com/frankli0324/go-restkit/internal/transport/chunked"
)

// maxDrain is how much of an unread body Close reads to keep the
// connection.
const maxDrain = 4 << 10

type HTTP1 struct{}

func (t HTTP1) Write(c *conn.Connection, r *model.PreparedRequest) error {
	body, err := r.GetBody() // can write body
	if err != nil {
		return err
	}
	if err := t.writeHeader(wireWriter{c}, r); err != nil {
		return err
	}
	if err := t.writeBody(c, r, body); err != nil {
		return err
	}
	return c.Flush()
}

type wireWriter struct{ c *conn.Connection }

func (w wireWriter) Write(p []byte) (int, error) {
	if err := w.c.Send(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// writeHeader writes the request line and header part of an http 1.1 request
// e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
func (t HTTP1) writeHeader(w io.Writer, r *model.PreparedRequest) error {
	header := bufio.NewWriter(w) // default bufsize is 4096

	target := r.U.RequestURI()
	if r.Method == http.MethodConnect {
		target = r.U.Host
	}
	header.WriteString(r.Method)
	header.WriteByte(' ')
	header.WriteString(target)
	header.WriteString(" HTTP/1.1\r\n")

	header.WriteString("Host: ")
	header.WriteString(r.HeaderHost)
	header.WriteString("\r\n")
	if r.Chunked {
		header.WriteString("Transfer-Encoding: chunked\r\n")
	} else if r.ContentLength != -1 {
		header.WriteString("Content-Length: ")
		header.WriteString(strconv.FormatInt(r.ContentLength, 10))
		header.WriteString("\r\n")
	}
	for _, f := range r.Header {
		header.WriteString(f.Name)
		header.WriteString(": ")
		header.WriteString(f.Value)
		header.WriteString("\r\n")
	}
	header.WriteString("\r\n")
	return header.Flush()
}

func (t HTTP1) writeBody(c *conn.Connection, r *model.PreparedRequest, body model.Body) error {
	switch b := body.(type) {
	case model.Empty:
		if r.Chunked {
			return c.SendChunk(nil)
		}
		return nil
	case model.Bytes:
		if r.Chunked {
			return c.SendSeq(iter.Seq[[]byte](model.ChunksOf(b)), true)
		}
		return c.Send(b)
	case *model.Stream:
		if rc, ok := b.R.(io.Closer); ok {
			defer rc.Close() // request body is ALWAYS closed
		}
		if r.Chunked {
			return c.SendStream(b.R, true)
		}
		return c.SendStream(&exactReader{r: b.R, n: r.ContentLength, want: r.ContentLength}, false)
	case model.Chunks:
		if r.Chunked {
			return c.SendSeq(iter.Seq[[]byte](b), true)
		}
		return t.writeSizedSeq(c, iter.Seq[[]byte](b), r.ContentLength)
	}
	return fmt.Errorf("unsupported body type: %T", body)
}

// writeSizedSeq sends a chunk sequence whose total length was declared up
// front. Sending more or less than that would desync the connection.
func (t HTTP1) writeSizedSeq(c *conn.Connection, seq iter.Seq[[]byte], want int64) error {
	var sent int64
	var bodyErr error
	err := c.SendSeq(func(yield func([]byte) bool) {
		for p := range seq {
			if sent+int64(len(p)) > want {
				bodyErr = fmt.Errorf("http: ContentLength=%d with Body length greater", want)
				return
			}
			sent += int64(len(p))
			if !yield(p) {
				return
			}
		}
	}, false)
	if err == nil && bodyErr == nil && sent != want {
		bodyErr = fmt.Errorf("http: ContentLength=%d with Body length %d", want, sent)
	}
	if bodyErr != nil {
		c.Close()
		return bodyErr
	}
	return err
}

// exactReader yields exactly want bytes of r, it fails when r ends early.
type exactReader struct {
	r       io.Reader
	n, want int64
}

func (e *exactReader) Read(p []byte) (int, error) {
	if e.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > e.n {
		p = p[:e.n]
	}
	n, err := e.r.Read(p)
	e.n -= int64(n)
	if err == io.EOF {
		if e.n > 0 {
			return n, fmt.Errorf("http: ContentLength=%d with Body length %d", e.want, e.want-e.n)
		}
		err = nil
	}
	return n, err
}

func (t HTTP1) Read(c *conn.Connection, req *model.PreparedRequest, resp *model.Response) error {
	tp := textproto.NewReader(c.Reader())
	for {
		if err := t.readHead(c, tp, resp); err != nil {
			return err
		}
		// skip interim responses like 100 Continue
		if resp.StatusCode >= 200 || resp.StatusCode == http.StatusSwitchingProtocols {
			break
		}
	}
	resp.Request = req
	return t.readTransfer(c, req, resp)
}

func (t HTTP1) readHead(c *conn.Connection, tp *textproto.Reader, resp *model.Response) error {
	line, err := tp.ReadLine()
	if err != nil {
		return readFailure(c, "status line", err)
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/1.") {
		c.Close()
		return &errs.ProtocolError{Msg: fmt.Sprintf("malformed status line %q", line)}
	}
	resp.Proto = proto
	resp.Status = strings.TrimLeft(status, " ")

	statusCode, reason, _ := strings.Cut(resp.Status, " ")
	if len(statusCode) != 3 {
		c.Close()
		return &errs.ProtocolError{Msg: "malformed HTTP status code " + statusCode}
	}
	resp.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || resp.StatusCode < 100 {
		c.Close()
		return &errs.ProtocolError{Msg: "malformed HTTP status code " + statusCode}
	}
	resp.Reason = strings.TrimSpace(reason)

	// Parse the response headers.
	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		return readFailure(c, "header", err)
	}
	if hp, ok := mimeHeader["Pragma"]; ok && len(hp) > 0 && hp[0] == "no-cache" {
		if _, presentcc := mimeHeader["Cache-Control"]; !presentcc {
			mimeHeader["Cache-Control"] = []string{"no-cache"}
		}
	}
	resp.Header = http.Header(mimeHeader)

	resp.Cookies = map[string]string{}
	for _, ck := range (&http.Response{Header: resp.Header}).Cookies() {
		resp.Cookies[ck.Name] = ck.Value
	}
	return nil
}

// readFailure classifies an error hit while reading the response: a closed
// or failing connection is a transport failure, anything else a malformed
// message.
func readFailure(c *conn.Connection, what string, err error) error {
	if errors.Is(err, errs.ErrTransport) {
		return err
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return c.Fail("read", err)
	}
	c.Close()
	if errors.Is(err, errs.ErrProtocol) {
		return err
	}
	return &errs.ProtocolError{Msg: "reading " + what, Err: err}
}

func (t HTTP1) readTransfer(c *conn.Connection, req *model.PreparedRequest, resp *model.Response) error {
	contentLens := resp.Header["Content-Length"]

	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				c.Close()
				return &errs.ProtocolError{Msg: fmt.Sprintf("message cannot contain multiple Content-Length headers; got %q", contentLens)}
			}
		}

		// deduplicate Content-Length
		resp.Header.Del("Content-Length")
		resp.Header.Add("Content-Length", first)

		contentLens = resp.Header["Content-Length"]
	}

	cl := int64(-1)
	if len(contentLens) > 0 {
		n, err := strconv.ParseUint(textproto.TrimString(contentLens[0]), 10, 63)
		if err != nil {
			c.Close()
			return &errs.ProtocolError{Msg: fmt.Sprintf("bad Content-Length %q", contentLens[0])}
		}
		cl = int64(n)
	}
	resp.ContentLength = cl

	mustClose := shouldClose(req, resp)
	if !bodyAllowed(req, resp.StatusCode) {
		resp.Body = http.NoBody
		c.Release(mustClose || resp.StatusCode == http.StatusSwitchingProtocols)
		return nil
	}

	var r io.Reader
	switch {
	case httpguts.HeaderValuesContainsToken(resp.Header["Transfer-Encoding"], "chunked"):
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
		r = chunked.NewChunkedReader(c.Reader())
	case cl == 0:
		resp.Body = http.NoBody
		c.Release(mustClose)
		return nil
	case cl > 0:
		r = &lengthReader{r: c.Reader(), n: cl}
	default:
		// delimited by the peer closing the connection
		r, mustClose = c.Reader(), true
	}
	resp.Body = &body{r: r, c: c, closeAfter: mustClose}
	return nil
}

func bodyAllowed(req *model.PreparedRequest, code int) bool {
	switch {
	case req.Method == http.MethodHead:
		return false
	case req.Method == http.MethodConnect && code/100 == 2:
		return false
	case code/100 == 1, code == http.StatusNoContent, code == http.StatusNotModified:
		return false
	}
	return true
}

func shouldClose(req *model.PreparedRequest, resp *model.Response) bool {
	conns := resp.Header["Connection"]
	if httpguts.HeaderValuesContainsToken(conns, "close") {
		return true
	}
	if resp.Proto == "HTTP/1.0" && !httpguts.HeaderValuesContainsToken(conns, "keep-alive") {
		return true
	}
	return httpguts.HeaderValuesContainsToken(req.Header.Values("Connection"), "close")
}

// lengthReader reads a Content-Length delimited body.
type lengthReader struct {
	r io.Reader
	n int64
}

func (l *lengthReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	if err == io.EOF && l.n > 0 {
		err = io.ErrUnexpectedEOF
	} else if err == nil && l.n == 0 {
		err = io.EOF
	}
	return n, err
}

var errBodyClosed = errors.New("http: read on closed response body")

// body releases the connection once the message is fully read, or drops it
// on failure.
type body struct {
	r          io.Reader
	c          *conn.Connection
	closeAfter bool
	eof        bool
	closed     bool
}

func (b *body) Read(p []byte) (int, error) {
	if b.closed {
		return 0, errBodyClosed
	}
	if b.eof {
		return 0, io.EOF
	}
	n, err := b.r.Read(p)
	switch {
	case err == io.EOF:
		b.eof = true
		b.c.Release(b.closeAfter)
	case err != nil:
		b.eof = true
		err = readFailure(b.c, "body", err)
	}
	return n, err
}

// Close drains a small remainder to keep the connection, otherwise the
// connection is dropped.
func (b *body) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.eof {
		return nil
	}
	if b.closeAfter {
		return b.c.Close()
	}
	if _, err := io.CopyN(io.Discard, b.r, maxDrain); err == io.EOF {
		b.c.Release(false)
		return nil
	}
	return b.c.Close()
}
