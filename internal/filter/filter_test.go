package filter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-restkit/internal/filter"
	"github.com/frankli0324/go-restkit/internal/model"
)

func recorder(name string, log *[]string, fail error) filter.Filter {
	return filter.FilterFuncs{
		Request: func(context.Context, *model.PreparedRequest) error {
			*log = append(*log, "req:"+name)
			return fail
		},
		Response: func(context.Context, *model.Response) error {
			*log = append(*log, "resp:"+name)
			return fail
		},
	}
}

func TestChainOrder(t *testing.T) {
	var log []string
	chain := filter.Join(
		[]filter.Filter{recorder("client1", &log, nil), recorder("client2", &log, nil)},
		[]filter.Filter{recorder("request", &log, nil)},
	)
	require.NoError(t, chain.OnRequest(t.Context(), nil))
	require.NoError(t, chain.OnResponse(t.Context(), nil))
	assert.Equal(t, []string{
		"req:client1", "req:client2", "req:request",
		"resp:client1", "resp:client2", "resp:request",
	}, log)
}

func TestChainStopsAtFirstError(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	chain := filter.Chain{recorder("a", &log, boom), recorder("b", &log, nil)}
	assert.Same(t, boom, chain.OnRequest(t.Context(), nil))
	assert.Equal(t, []string{"req:a"}, log)
}

func TestNilFuncsAreNoops(t *testing.T) {
	var f filter.FilterFuncs
	assert.NoError(t, f.OnRequest(t.Context(), nil))
	assert.NoError(t, f.OnResponse(t.Context(), nil))
}

func TestBasicAuth(t *testing.T) {
	pr, err := (&model.Request{
		URL:    "http://localhost/auth",
		Header: model.H("authorization", "Bearer old"),
	}).Prepare()
	require.NoError(t, err)

	require.NoError(t, filter.BasicAuth{Username: "test", Password: "test"}.OnRequest(t.Context(), pr))
	assert.Equal(t, []string{"Basic dGVzdDp0ZXN0"}, pr.Header.Values("Authorization"))
	assert.NoError(t, filter.BasicAuth{}.OnResponse(t.Context(), &model.Response{StatusCode: 403}))
}
