package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/frankli0324/go-restkit/internal/config"
)

// ErrBodyStreamed is returned when the body is materialized after it was
// handed out as a live stream.
var ErrBodyStreamed = errors.New("response body was already streamed")

type bodyState uint8

const (
	bodyUnread bodyState = iota
	bodyStreamed
	bodyCached
)

// BodyBytes drains the body once and caches it. Later calls return the
// cached bytes without touching the network.
func (r *Response) BodyBytes() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case bodyCached:
		return r.cached, r.cacheErr
	case bodyStreamed:
		return nil, ErrBodyStreamed
	}
	r.state = bodyCached
	if r.Body == nil {
		return nil, nil
	}
	b, err := io.ReadAll(r.Body)
	if cerr := r.Body.Close(); err == nil {
		err = cerr
	}
	r.cached, r.cacheErr = b, err
	return b, err
}

// BodyString returns the body as a string, decoded from charset when one
// is given ("utf-8", "latin1", "shift_jis", ...).
func (r *Response) BodyString(charset ...string) (string, error) {
	b, err := r.BodyBytes()
	if err != nil {
		return "", err
	}
	if len(charset) == 0 || charset[0] == "" {
		return string(b), nil
	}
	enc, err := htmlindex.Get(charset[0])
	if err != nil {
		return "", fmt.Errorf("unknown charset %q: %w", charset[0], err)
	}
	s, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding body as %s: %w", charset[0], err)
	}
	return string(s), nil
}

// BodyStream hands out the live body. Once the body has been materialized
// it returns a reader over the cached bytes instead.
func (r *Response) BodyStream() (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case bodyCached:
		return io.NopCloser(bytes.NewReader(r.cached)), r.cacheErr
	case bodyStreamed:
		return nil, ErrBodyStreamed
	}
	r.state = bodyStreamed
	if r.Body == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return r.Body, nil
}

// Chunks yields the body in blocks of at most 16 KiB. The connection is
// released when the sequence ends, whether or not it was fully iterated.
func (r *Response) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		body, err := r.BodyStream()
		if err != nil {
			yield(nil, err)
			return
		}
		defer body.Close()
		buf := make([]byte, config.BlockSize)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				if !yield(bytes.Clone(buf[:n]), nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// Close releases the underlying connection. Unread body bytes are drained
// when there are few of them; otherwise the connection is dropped.
func (r *Response) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == bodyCached || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
