// Package restkit is an HTTP/1.1 client engine with pooled persistent
// connections, request/response filters and a small REST resource facade.
package restkit

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/frankli0324/go-restkit/internal"
	"github.com/frankli0324/go-restkit/internal/config"
	"github.com/frankli0324/go-restkit/internal/errs"
	"github.com/frankli0324/go-restkit/internal/filter"
	"github.com/frankli0324/go-restkit/internal/metrics"
	"github.com/frankli0324/go-restkit/internal/model"
	"github.com/frankli0324/go-restkit/internal/resource"
)

type Client = internal.Client
type Option = internal.Option
type Config = config.Config
type Metrics = metrics.Metrics

type Header = model.Header
type Field = model.Field
type Request = model.Request
type PreparedRequest = model.PreparedRequest
type Response = model.Response

type Body = model.Body
type Empty = model.Empty
type Bytes = model.Bytes
type Stream = model.Stream
type Chunks = model.Chunks
type Form = model.Form
type FormField = model.FormField
type File = model.File

type Filter = model.Filter
type FilterFuncs = filter.FilterFuncs
type BasicAuth = filter.BasicAuth

type TransportError = errs.TransportError
type ProtocolError = errs.ProtocolError
type RedirectLimitError = errs.RedirectLimitError

type Resource = resource.Resource
type ResourceOption = resource.Option
type ResourceError = resource.ResourceError

var (
	ErrTransport     = errs.ErrTransport
	ErrProtocol      = errs.ErrProtocol
	ErrRedirectLimit = errs.ErrRedirectLimit

	ErrUnauthorized     = resource.ErrUnauthorized
	ErrResourceNotFound = resource.ErrResourceNotFound
	ErrRequestFailed    = resource.ErrRequestFailed

	ErrBodyConsumed  = model.ErrBodyConsumed
	ErrNotReplayable = model.ErrNotReplayable
	ErrBodyStreamed  = model.ErrBodyStreamed
)

// New builds a [Client]. The zero Client is usable as well.
func New(opts ...Option) (*Client, error) { return internal.New(opts...) }

var (
	WithConfig          = internal.WithConfig
	WithTimeout         = internal.WithTimeout
	WithDNSTimeout      = internal.WithDNSTimeout
	WithFollowRedirects = internal.WithFollowRedirects
	WithMaxRedirects    = internal.WithMaxRedirects
	WithFilters         = internal.WithFilters
	WithPool            = internal.WithPool
	WithDialer          = internal.WithDialer
	WithPoolSize        = internal.WithPoolSize
	WithLogger          = internal.WithLogger
	WithTracer          = internal.WithTracer
	WithMetrics         = internal.WithMetrics
	WithThrottle        = internal.WithThrottle
	WithUserAgent       = internal.WithUserAgent
)

// DefaultConfig returns the settings of a zero [Client].
func DefaultConfig() Config { return config.Default() }

// ConfigFromEnv reads <PREFIX>_TIMEOUT, <PREFIX>_MAX_REDIRECTS and the
// other settings from the environment, for use with [WithConfig].
func ConfigFromEnv(prefix string) (Config, error) { return config.FromEnv(prefix) }

// NewMetrics registers the client collectors on reg, for use with
// [WithMetrics].
func NewMetrics(reg prometheus.Registerer) *Metrics { return metrics.New(reg, "restkit") }

// H builds a Header from name/value pairs.
func H(kv ...string) Header { return model.H(kv...) }

var (
	NewStream = model.NewStream
	ChunksOf  = model.ChunksOf
	NewForm   = model.NewForm
	NewFile   = model.NewFile
)

// NewResource returns a [Resource] rooted at base. A nil client gets a zero
// [Client].
func NewResource(base string, client *Client, opts ...ResourceOption) (*Resource, error) {
	return resource.NewResource(base, client, opts...)
}

var (
	WithPayload         = resource.WithPayload
	WithHeader          = resource.WithHeader
	WithParams          = resource.WithParams
	WithResourceFilters = resource.WithFilters
)
