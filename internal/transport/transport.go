package transport

import (
	"github.com/frankli0324/go-restkit/internal/conn"
	"github.com/frankli0324/go-restkit/internal/model"
)

type Transport interface {
	Read(c *conn.Connection, req *model.PreparedRequest, resp *model.Response) error
	Write(c *conn.Connection, req *model.PreparedRequest) error
}

var _ Transport = HTTP1{}
