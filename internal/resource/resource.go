// Package resource is a thin REST facade over the client: verbs against a
// base URI, with failed statuses turned into errors.
package resource

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/frankli0324/go-restkit/internal"
	"github.com/frankli0324/go-restkit/internal/filter"
	"github.com/frankli0324/go-restkit/internal/model"
	"github.com/frankli0324/go-restkit/internal/uri"
)

// Option configures a single call, or every call when given to
// [NewResource] or [Resource.Sub].
type Option func(*callOpts) error

type callOpts struct {
	payload model.Body
	header  model.Header
	params  url.Values
	filters []filter.Filter
}

func (o callOpts) clone() callOpts {
	o.header = o.header.Clone()
	if o.params != nil {
		p := make(url.Values, len(o.params))
		for k, vs := range o.params {
			p[k] = append([]string(nil), vs...)
		}
		o.params = p
	}
	o.filters = append([]filter.Filter(nil), o.filters...)
	return o
}

// WithPayload sets the request body.
func WithPayload(b model.Body) Option {
	return func(o *callOpts) error {
		o.payload = b
		return nil
	}
}

// WithHeader adds header fields, replacing fields of the same name set
// earlier.
func WithHeader(h model.Header) Option {
	return func(o *callOpts) error {
		for _, f := range h {
			o.header.Del(f.Name)
		}
		o.header = append(o.header, h...)
		return nil
	}
}

// WithParams adds query parameters.
func WithParams(params url.Values) Option {
	return func(o *callOpts) error {
		if o.params == nil {
			o.params = url.Values{}
		}
		for k, vs := range params {
			o.params[k] = append(o.params[k], vs...)
		}
		return nil
	}
}

// WithFilters appends filters run after the client's ones.
func WithFilters(filters ...filter.Filter) Option {
	return func(o *callOpts) error {
		for _, f := range filters {
			if f == nil {
				return errors.New("filter must not be nil")
			}
		}
		o.filters = append(o.filters, filters...)
		return nil
	}
}

// Resource is immutable and safe for concurrent use.
type Resource struct {
	client   *internal.Client
	uri      string
	defaults callOpts
}

// NewResource returns a Resource rooted at base. Credentials in base are
// sent as Basic authentication. A nil client gets a zero [internal.Client].
func NewResource(base string, client *internal.Client, opts ...Option) (*Resource, error) {
	if _, err := url.Parse(base); err != nil {
		return nil, err
	}
	if client == nil {
		client = &internal.Client{}
	}
	r := &Resource{client: client, uri: base}
	for _, opt := range opts {
		if err := opt(&r.defaults); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// URI is the base of every call.
func (r *Resource) URI() string { return r.uri }

// Sub returns a Resource rooted at path below r, sharing its client and
// defaults. opts add to the defaults.
func (r *Resource) Sub(path string, opts ...Option) (*Resource, error) {
	sub := &Resource{client: r.client, uri: uri.Join(r.uri, path), defaults: r.defaults.clone()}
	for _, opt := range opts {
		if err := opt(&sub.defaults); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

func (r *Resource) Get(ctx context.Context, path string, opts ...Option) (*model.Response, error) {
	return r.Do(ctx, http.MethodGet, path, opts...)
}

func (r *Resource) Head(ctx context.Context, path string, opts ...Option) (*model.Response, error) {
	return r.Do(ctx, http.MethodHead, path, opts...)
}

func (r *Resource) Delete(ctx context.Context, path string, opts ...Option) (*model.Response, error) {
	return r.Do(ctx, http.MethodDelete, path, opts...)
}

func (r *Resource) Post(ctx context.Context, path string, opts ...Option) (*model.Response, error) {
	return r.Do(ctx, http.MethodPost, path, opts...)
}

func (r *Resource) Put(ctx context.Context, path string, opts ...Option) (*model.Response, error) {
	return r.Do(ctx, http.MethodPut, path, opts...)
}

func (r *Resource) Patch(ctx context.Context, path string, opts ...Option) (*model.Response, error) {
	return r.Do(ctx, http.MethodPatch, path, opts...)
}

// Do sends method to path below the base URI. A status >= 400 comes back as
// a *ResourceError and no response.
func (r *Resource) Do(ctx context.Context, method, path string, opts ...Option) (*model.Response, error) {
	o := r.defaults.clone()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	target := r.uri
	if path != "" {
		target = uri.Join(r.uri, path)
	}
	target, err := uri.AddQuery(target, o.params)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.CtxDo(ctx, &model.Request{
		Method:  method,
		URL:     target,
		Header:  o.header,
		Body:    o.payload,
		Filters: o.filters,
	})
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return resp, nil
}
