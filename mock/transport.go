package mock

import (
	"github.com/fwojciec/rustdoc/jsonrpc"
	"github.com/fwojciec/rustdoc/mcp"
)

var _ mcp.Transport = (*Transport)(nil)

// Transport is a mock implementation of mcp.Transport.
type Transport struct {
	ReadFn  func() (jsonrpc.Message, error)
	WriteFn func(v any) error
}

func (t *Transport) Read() (jsonrpc.Message, error) {
	return t.ReadFn()
}

func (t *Transport) Write(v any) error {
	return t.WriteFn(v)
}
