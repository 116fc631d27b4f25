// Package jsonrpc implements the JSON-RPC 2.0 envelope: decoded messages,
// the canonical request shape and response/error objects.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the protocol tag written on every outgoing message.
const Version = "2.0"

// Standard JSON-RPC error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Message is an untyped JSON object read from or written to the stream.
type Message map[string]any

// Request is the normalized form of an incoming message.
// A nil ID marks a notification, which must never be answered.
type Request struct {
	Version string
	ID      any
	Method  string
	Params  map[string]any
}

// ParseRequest coerces msg into a Request. Missing or mistyped fields take
// their zero value: the version defaults to "2.0", method to "", params to
// an empty map. An explicit JSON null id is treated as absent.
func ParseRequest(msg Message) *Request {
	req := &Request{
		Version: Version,
		ID:      msg["id"],
		Params:  map[string]any{},
	}
	if v, ok := msg["jsonrpc"].(string); ok && v != "" {
		req.Version = v
	}
	if m, ok := msg["method"].(string); ok {
		req.Method = m
	}
	if p, ok := msg["params"].(map[string]any); ok {
		req.Params = p
	}
	return req
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Error is the error member of a response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Data == nil {
		return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("jsonrpc error %d: %s (%v)", e.Code, e.Message, e.Data)
}

// Errorf returns an Error with the given code and formatted message.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Response is a reply to a request. Exactly one of Result or Error is set.
type Response struct {
	Version string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewResult builds a success response, encoding result eagerly so that an
// empty object is still written as {}.
func NewResult(id any, result any) (*Response, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	raw := bytes.TrimRight(buf.Bytes(), "\n")
	return &Response{Version: Version, ID: id, Result: raw}, nil
}

// NewError builds an error response.
func NewError(id any, err *Error) *Response {
	return &Response{Version: Version, ID: id, Error: err}
}
