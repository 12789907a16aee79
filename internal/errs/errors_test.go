package errs_test

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/frankli0324/go-restkit/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestTransportError(t *testing.T) {
	err := fmt.Errorf("sending request: %w", &errs.TransportError{
		Op: "write", Addr: "127.0.0.1:80", Reused: true, Err: io.ErrClosedPipe,
	})

	assert.ErrorIs(t, err, errs.ErrTransport)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.NotErrorIs(t, err, errs.ErrProtocol)

	var te *errs.TransportError
	assert.True(t, errors.As(err, &te))
	assert.True(t, te.Reused)
	assert.False(t, te.Timeout())
	assert.Equal(t, "sending request: write 127.0.0.1:80: io: read/write on closed pipe", err.Error())
}

func TestTransportErrorTimeout(t *testing.T) {
	te := &errs.TransportError{Op: "read", Err: os.ErrDeadlineExceeded}
	assert.True(t, te.Timeout())
}

func TestProtocolError(t *testing.T) {
	err := errs.Protocol("invalid byte in chunk length")
	assert.ErrorIs(t, err, errs.ErrProtocol)
	assert.Equal(t, "malformed HTTP response: invalid byte in chunk length", err.Error())

	wrapped := &errs.ProtocolError{Msg: "header", Err: io.ErrUnexpectedEOF}
	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)
}

func TestRedirectLimitError(t *testing.T) {
	err := &errs.RedirectLimitError{Max: 5, URL: "http://a/b"}
	assert.ErrorIs(t, err, errs.ErrRedirectLimit)
	assert.Contains(t, err.Error(), "5 redirects")
}
