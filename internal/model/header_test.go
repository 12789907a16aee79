package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/propagation"

	"github.com/frankli0324/go-restkit/internal/model"
)

var _ propagation.TextMapCarrier = (*model.Header)(nil)

func TestHeader(t *testing.T) {
	h := model.H("x-a", "1", "X-B", "2", "X-A", "3")
	assert.Equal(t, "1", h.Get("X-A"))
	assert.Equal(t, []string{"1", "3"}, h.Values("x-A"))
	assert.True(t, h.Has("x-b"))
	assert.Equal(t, []string{"x-a", "X-B"}, h.Keys())

	c := h.Clone()
	c.Set("X-A", "4")
	assert.Equal(t, model.H("x-a", "4", "X-B", "2"), c)
	assert.Equal(t, []string{"1", "3"}, h.Values("X-A"))

	c.Set("X-C", "5")
	c.Del("x-b")
	assert.Equal(t, model.H("x-a", "4", "X-C", "5"), c)

	var empty model.Header
	assert.Nil(t, empty.Clone())
	empty.Add("A", "1")
	assert.Equal(t, "1", empty.Get("a"))
}
