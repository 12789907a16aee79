package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/frankli0324/go-restkit/internal/config"
	"github.com/frankli0324/go-restkit/internal/conn"
	"github.com/frankli0324/go-restkit/internal/dialer"
	"github.com/frankli0324/go-restkit/internal/errs"
	"github.com/frankli0324/go-restkit/internal/filter"
	"github.com/frankli0324/go-restkit/internal/model"
	"github.com/frankli0324/go-restkit/internal/throttle"
	"github.com/frankli0324/go-restkit/internal/transport"
	"github.com/frankli0324/go-restkit/internal/uri"
	"github.com/frankli0324/go-restkit/netpool"
)

type PreparedRequest = model.PreparedRequest

// Client sends requests over pooled connections. The zero value is ready to
// use with the defaults of [config.Default]. A Client must not be copied
// after first use and is safe for concurrent use.
type Client struct {
	options

	once      sync.Once
	throttle  *throttle.Throttle
	transport transport.Transport
}

// New builds a Client from the defaults and opts.
func New(opts ...Option) (*Client, error) {
	c := &Client{options: options{cfg: config.Default(), configured: true}}
	for _, opt := range opts {
		if err := opt(&c.options); err != nil {
			return nil, err
		}
	}
	if c.rps > 0 {
		t, err := throttle.New(c.rps, c.burst, func() *slog.Logger { return c.logger })
		if err != nil {
			return nil, err
		}
		c.throttle = t
	}
	c.once.Do(c.setup)
	return c, nil
}

func (c *Client) setup() {
	if !c.configured {
		c.cfg, c.configured = config.Default(), true
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("restkit")
	}
	if c.transport == nil {
		c.transport = transport.HTTP1{}
	}
	if c.pool == nil {
		d := c.dialer
		if d == nil {
			d = &dialer.CoreDialer{DNSTimeout: c.cfg.DNSTimeout}
		}
		c.pool = netpool.NewGroup(c.cfg.MaxConnsPerHost, c.cfg.MaxIdlePerHost, c.cfg.IdleTimeout, d.Dial)
	}
}

// CloseIdle closes the idle connections of the pool, when it supports it.
func (c *Client) CloseIdle() {
	c.once.Do(c.setup)
	if p, ok := c.pool.(interface{ CloseIdle() }); ok {
		p.CloseIdle()
	}
}

// Request is a shorthand for CtxDo with a request built from its parts.
func (c *Client) Request(ctx context.Context, method, url string, header model.Header, body model.Body) (*model.Response, error) {
	return c.CtxDo(ctx, &model.Request{Method: method, URL: url, Header: header, Body: body})
}

func (c *Client) Do(req *model.Request) (*model.Response, error) {
	return c.CtxDo(context.Background(), req)
}

// CtxDo sends req and reads the head of the response. The connection stays
// checked out until the body is read to the end or the response is closed.
func (c *Client) CtxDo(ctx context.Context, req *model.Request) (*model.Response, error) {
	c.once.Do(c.setup)

	pr, err := req.Prepare()
	if err != nil {
		return nil, fmt.Errorf("preparing request: %w", err)
	}
	if c.cfg.UserAgent != "" && !pr.Header.Has("User-Agent") {
		pr.Header.Add("User-Agent", c.cfg.UserAgent)
	}

	ctx, span := c.tracer.Start(ctx, "restkit.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", pr.Method),
			attribute.String("url.full", pr.URLString()),
		))
	defer span.End()
	otel.GetTextMapPropagator().Inject(ctx, &pr.Header)

	resp, err := c.follow(ctx, filter.Join(c.filters, req.Filters), pr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("http.response.status_code", resp.StatusCode),
		attribute.String("url.final", resp.FinalURL),
	)
	return resp, nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func (c *Client) follow(ctx context.Context, chain filter.Chain, pr *PreparedRequest) (*model.Response, error) {
	for hops := 0; ; hops++ {
		resp, err := c.send(ctx, chain, pr)
		if err != nil {
			return nil, err
		}
		if !c.cfg.FollowRedirect || !isRedirect(resp.StatusCode) {
			return resp, nil
		}
		loc := resp.Header.Get("Location")
		if loc == "" {
			return resp, nil
		}

		next, err := pr.Redirect(resp.StatusCode, loc)
		if errors.Is(err, model.ErrNotReplayable) {
			// the body is gone, let the caller decide
			return resp, nil
		}
		resp.Close()
		if err != nil {
			return nil, err
		}
		if hops >= c.cfg.MaxRedirects {
			return nil, &errs.RedirectLimitError{Max: c.cfg.MaxRedirects, URL: next.URLString()}
		}

		c.metrics.ObserveRedirect()
		c.logger.DebugContext(ctx, "following redirect",
			"status", resp.StatusCode, "from", pr.URLString(), "to", next.URLString())
		pr = next
	}
}

// send runs one hop: filters, then the exchange, retried once on a fresh
// connection when a stale pooled one failed before any response byte.
func (c *Client) send(ctx context.Context, chain filter.Chain, pr *PreparedRequest) (*model.Response, error) {
	key, err := keyOf(pr.U)
	if err != nil {
		return nil, err
	}
	if err := c.throttle.Wait(ctx, pr.URLString()); err != nil {
		return nil, err
	}
	if err := chain.OnRequest(ctx, pr); err != nil {
		return nil, err
	}

	resp, err := c.roundTrip(ctx, key, pr, false)
	if err != nil && c.shouldRetry(ctx, pr, err) {
		c.metrics.ObserveRetry()
		c.logger.DebugContext(ctx, "retrying on a fresh connection", "addr", key.Addr(), "err", err)
		resp, err = c.roundTrip(ctx, key, pr, true)
	}
	if err != nil {
		return nil, err
	}

	resp.FinalURL = pr.URLString()
	if err := chain.OnResponse(ctx, resp); err != nil {
		resp.Close()
		return nil, err
	}
	return resp, nil
}

func (c *Client) shouldRetry(ctx context.Context, pr *PreparedRequest, err error) bool {
	if ctx.Err() != nil || !pr.Replayable() {
		return false
	}
	var te *errs.TransportError
	return errors.As(err, &te) && te.Reused && !te.ResponseStarted
}

func (c *Client) roundTrip(ctx context.Context, key netpool.Key, pr *PreparedRequest, fresh bool) (*model.Response, error) {
	pc, err := c.pool.Acquire(ctx, key, fresh)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveAcquire(pc.Reused())

	cn := conn.New(pc, key, c.cfg.Timeout)
	cn.OnInvalidate = func(cause error) {
		c.metrics.ObserveInvalidate(cause)
		if cause != nil {
			c.logger.DebugContext(ctx, "connection dropped", "addr", key.Addr(), "err", cause)
		}
	}
	cn.Bind(ctx)

	start := time.Now()
	if err := c.transport.Write(cn, pr); err != nil {
		cn.Close()
		return nil, err
	}
	resp := &model.Response{}
	if err := c.transport.Read(cn, pr, resp); err != nil {
		cn.Close()
		return nil, err
	}
	c.metrics.ObserveResponse(pr.Method, resp.StatusCode, time.Since(start))
	c.logger.DebugContext(ctx, "response",
		"method", pr.Method, "url", pr.URLString(), "status", resp.StatusCode, "reused", cn.Reused())
	return resp, nil
}

func keyOf(u *url.URL) (netpool.Key, error) {
	host, port, err := uri.HostPort(u)
	if err != nil {
		return netpool.Key{}, fmt.Errorf("invalid host %q: %w", u.Host, err)
	}
	return netpool.Key{Host: host, Port: port, SSL: u.Scheme == "https"}, nil
}
