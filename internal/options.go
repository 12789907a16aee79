package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/frankli0324/go-restkit/internal/config"
	"github.com/frankli0324/go-restkit/internal/dialer"
	"github.com/frankli0324/go-restkit/internal/filter"
	"github.com/frankli0324/go-restkit/internal/metrics"
	"github.com/frankli0324/go-restkit/internal/throttle"
	"github.com/frankli0324/go-restkit/netpool"
)

// Option is a functional option for configuring a [Client] via [New].
type Option func(*options) error

type options struct {
	cfg        config.Config
	configured bool

	filters []filter.Filter
	pool    netpool.Acquirer
	dialer  dialer.Dialer
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics

	rps, burst int
}

// WithConfig replaces the whole configuration, usually one read by
// [config.FromEnv]. Options given after it still apply on top.
func WithConfig(cfg config.Config) Option {
	return func(o *options) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.cfg = cfg
		return nil
	}
}

// WithTimeout bounds every socket read and write. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.cfg.Timeout = d
		return nil
	}
}

// WithDNSTimeout bounds name resolution of the default dialer. It has no
// effect together with [WithDialer] or [WithPool].
func WithDNSTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("dns timeout must not be negative")
		}
		o.cfg.DNSTimeout = d
		return nil
	}
}

// WithFollowRedirects makes the [Client] follow Location headers of 3xx
// responses.
func WithFollowRedirects() Option {
	return func(o *options) error {
		o.cfg.FollowRedirect = true
		return nil
	}
}

// WithMaxRedirects sets how many redirects are followed before giving up.
func WithMaxRedirects(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("max redirects must not be negative")
		}
		o.cfg.MaxRedirects = n
		return nil
	}
}

// WithFilters appends filters run on every request, in order.
func WithFilters(filters ...filter.Filter) Option {
	return func(o *options) error {
		for i, f := range filters {
			if f == nil {
				return fmt.Errorf("filter %d must not be nil", i)
			}
		}
		o.filters = append(o.filters, filters...)
		return nil
	}
}

// WithPool replaces the connection pool. The pool owns dialing, so
// [WithDialer] and the pool size settings are ignored.
func WithPool(p netpool.Acquirer) Option {
	return func(o *options) error {
		if p == nil {
			return errors.New("pool must not be nil")
		}
		o.pool = p
		return nil
	}
}

// WithDialer replaces the dialer of the default pool.
func WithDialer(d dialer.Dialer) Option {
	return func(o *options) error {
		if d == nil {
			return errors.New("dialer must not be nil")
		}
		o.dialer = d
		return nil
	}
}

// WithPoolSize limits the connections per origin, and how many of them are
// kept idle.
func WithPoolSize(maxConns, maxIdle uint, idleTimeout time.Duration) Option {
	return func(o *options) error {
		o.cfg.MaxConnsPerHost, o.cfg.MaxIdlePerHost, o.cfg.IdleTimeout = maxConns, maxIdle, idleTimeout
		return o.cfg.Validate()
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithTracer injects the tracer requests are recorded with.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// WithMetrics records pool, redirect and response counters in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests
// per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.rps, o.burst = rps, burst
		return nil
	}
}

// WithUserAgent sets the User-Agent of requests that don't carry one.
func WithUserAgent(ua string) Option {
	return func(o *options) error {
		o.cfg.UserAgent = ua
		return nil
	}
}
