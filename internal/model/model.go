package model

import (
	"context"
	"io"
	"net/http"
	"sync"
)

type Request struct {
	Method string
	URL    string
	Body   Body
	Header Header

	// Chunked forces Transfer-Encoding: chunked whatever the body size.
	Chunked bool
	// Filters run after the client's filters, for this request only.
	Filters []Filter
}

// Filter intercepts a request right before it is written and the response
// right after its head was read. Both hooks may be no-ops.
type Filter interface {
	OnRequest(ctx context.Context, req *PreparedRequest) error
	OnResponse(ctx context.Context, resp *Response) error
}

type Response struct {
	Proto      string
	Status     string // "200 OK"
	StatusCode int
	Reason     string
	Header     http.Header
	// Cookies maps Set-Cookie names to values, the last one wins.
	Cookies map[string]string

	ContentLength int64 // -1 when unknown
	// Body is the raw single-pass stream. Prefer BodyString, BodyStream or
	// Chunks, which keep track of consumption.
	Body io.ReadCloser

	// FinalURL is the absolute URL of the last request of a redirect chain.
	FinalURL string
	Request  *PreparedRequest

	mu       sync.Mutex
	state    bodyState
	cached   []byte
	cacheErr error
}
