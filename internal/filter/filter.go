// Package filter holds the request/response interceptors of the client.
package filter

import (
	"context"

	"github.com/frankli0324/go-restkit/internal/model"
)

type Filter = model.Filter

// Chain runs filters in order. The first error stops it and is returned
// unchanged.
type Chain []Filter

// Join puts the client filters in front of the per-request ones.
func Join(client, request []Filter) Chain {
	if len(request) == 0 {
		return client
	}
	c := make(Chain, 0, len(client)+len(request))
	return append(append(c, client...), request...)
}

func (c Chain) OnRequest(ctx context.Context, req *model.PreparedRequest) error {
	for _, f := range c {
		if err := f.OnRequest(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) OnResponse(ctx context.Context, resp *model.Response) error {
	for _, f := range c {
		if err := f.OnResponse(ctx, resp); err != nil {
			return err
		}
	}
	return nil
}

// FilterFuncs adapts plain functions to a Filter, either may be nil.
type FilterFuncs struct {
	Request  func(ctx context.Context, req *model.PreparedRequest) error
	Response func(ctx context.Context, resp *model.Response) error
}

func (f FilterFuncs) OnRequest(ctx context.Context, req *model.PreparedRequest) error {
	if f.Request == nil {
		return nil
	}
	return f.Request(ctx, req)
}

func (f FilterFuncs) OnResponse(ctx context.Context, resp *model.Response) error {
	if f.Response == nil {
		return nil
	}
	return f.Response(ctx, resp)
}

// BasicAuth sets the Authorization header of every request. A rejected
// response is left to the caller, other credentials are never tried.
type BasicAuth struct {
	Username, Password string
}

func (b BasicAuth) OnRequest(_ context.Context, req *model.PreparedRequest) error {
	req.Header.Set("Authorization", model.BasicAuth(b.Username, b.Password))
	return nil
}

func (BasicAuth) OnResponse(context.Context, *model.Response) error { return nil }
