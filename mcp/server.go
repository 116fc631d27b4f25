package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fwojciec/rustdoc/jsonrpc"
	"github.com/fwojciec/rustdoc/stdio"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// Transport reads and writes JSON-RPC messages. *stdio.Session satisfies it.
type Transport interface {
	Read() (jsonrpc.Message, error)
	Write(v any) error
}

var _ Transport = (*stdio.Session)(nil)

// ToolHandler runs a tool. A returned error is unexpected and becomes an
// internal JSON-RPC error; expected failures are reported through
// mcpgo.NewToolResultError instead.
type ToolHandler func(ctx context.Context, args Arguments) (*mcpgo.CallToolResult, error)

type methodFunc func(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request tracing and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithInstructions sets the usage hint returned from initialize.
func WithInstructions(instructions string) Option {
	return func(s *Server) {
		s.instructions = instructions
	}
}

// Server dispatches MCP requests to method and tool handlers.
type Server struct {
	info         mcpgo.Implementation
	instructions string
	logger       *slog.Logger

	tools    []mcpgo.Tool
	handlers map[string]ToolHandler
	methods  map[string]methodFunc
}

// NewServer returns a Server identifying itself with name and version.
func NewServer(name, version string, opts ...Option) *Server {
	s := &Server{
		info:     mcpgo.Implementation{Name: name, Version: version},
		logger:   slog.New(slog.DiscardHandler),
		handlers: make(map[string]ToolHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.methods = map[string]methodFunc{
		MethodInitialize:               s.initialize,
		MethodInitialized:              empty,
		MethodNotificationsInitialized: empty,
		MethodPing:                     empty,
		MethodToolsList:                s.listTools,
		MethodToolsCall:                s.callTool,
		MethodResourcesList:            listResources,
		MethodResourcesTemplatesList:   listResourceTemplates,
		MethodPromptsList:              listPrompts,
		MethodResourcesRead:            notImplemented,
		MethodPromptsGet:               notImplemented,
	}
	return s
}

// AddTool registers a tool. Aliases route to the same handler but are not
// advertised by tools/list.
func (s *Server) AddTool(tool mcpgo.Tool, handler ToolHandler, aliases ...string) {
	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
	for _, alias := range aliases {
		s.handlers[alias] = handler
	}
}

// Tools returns the advertised tools in registration order.
func (s *Server) Tools() []mcpgo.Tool {
	return s.tools
}

// Serve reads messages from t and writes responses until the stream ends.
// It returns nil on end of input and ctx.Err() once ctx is done, even while
// blocked waiting for input. Malformed messages are answered with a parse
// error and skipped; any other read or write failure is returned.
func (s *Server) Serve(ctx context.Context, t Transport) error {
	s.logger.Info("serving", "name", s.info.Name, "version", s.info.Version)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := read(ctx, t)
		var parseErr *stdio.ParseError
		switch {
		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			s.logger.Info("stopped while waiting for input", "reason", err)
			return err
		case errors.Is(err, io.EOF):
			s.logger.Info("input closed")
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			s.logger.Warn("input closed inside a message")
			return nil
		case errors.As(err, &parseErr):
			s.logger.Warn("malformed message", "error", err)
			resp := jsonrpc.NewError(nil, &jsonrpc.Error{
				Code:    jsonrpc.ParseError,
				Message: "Parse error",
				Data:    parseErr.Err.Error(),
			})
			if err := t.Write(resp); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
			continue
		case err != nil:
			s.logger.Error("read failed", "error", err)
			return fmt.Errorf("read message: %w", err)
		}

		resp := s.Handle(ctx, msg)
		if resp == nil {
			continue
		}
		if err := t.Write(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

type readResult struct {
	msg jsonrpc.Message
	err error
}

// read waits for the next message from t or for ctx to be done. A read
// abandoned on cancellation is left blocked on the transport; Serve returns
// right after, so reads never overlap.
func read(ctx context.Context, t Transport) (jsonrpc.Message, error) {
	ch := make(chan readResult, 1)
	go func() {
		msg, err := t.Read()
		ch <- readResult{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.msg, r.err
	}
}

// Handle dispatches a single message and returns the response to write, or
// nil when the message is a notification.
func (s *Server) Handle(ctx context.Context, msg jsonrpc.Message) *jsonrpc.Response {
	req := jsonrpc.ParseRequest(msg)
	s.logger.Debug("<= request", "method", req.Method, "id", req.ID)

	if req.Method == "" {
		if req.IsNotification() {
			return nil
		}
		return jsonrpc.NewError(req.ID, jsonrpc.Errorf(jsonrpc.InvalidRequest, "Invalid Request: missing method"))
	}

	result, rpcErr := s.dispatch(ctx, req)
	if req.IsNotification() {
		return nil
	}
	if rpcErr != nil {
		return jsonrpc.NewError(req.ID, rpcErr)
	}
	resp, err := jsonrpc.NewResult(req.ID, result)
	if err != nil {
		return jsonrpc.NewError(req.ID, internalError(err))
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, req *jsonrpc.Request) (result any, rpcErr *jsonrpc.Error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic", "method", req.Method, "panic", r)
			result, rpcErr = nil, internalError(fmt.Errorf("%v", r))
		}
	}()

	method, ok := s.methods[req.Method]
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.MethodNotFound, "Method not found: %s", req.Method)
	}
	return method(ctx, req)
}

func (s *Server) initialize(_ context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	version, _ := req.Params["protocolVersion"].(string)
	if version == "" {
		version = DefaultProtocolVersion
	}
	return &initializeResult{
		InitializeResult: mcpgo.InitializeResult{
			ProtocolVersion: version,
			ServerInfo:      s.info,
			Instructions:    s.instructions,
		},
	}, nil
}

func (s *Server) listTools(context.Context, *jsonrpc.Request) (any, *jsonrpc.Error) {
	tools := s.tools
	if tools == nil {
		tools = []mcpgo.Tool{}
	}
	return &mcpgo.ListToolsResult{Tools: tools}, nil
}

func (s *Server) callTool(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	name, _ := req.Params["name"].(string)
	args, _ := req.Params["arguments"].(map[string]any)

	handler, ok := s.handlers[name]
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.MethodNotFound, "Unknown tool: %s", name)
	}

	result, err := handler(ctx, Arguments(args))
	if err != nil {
		s.logger.Error("tool failed", "tool", name, "error", err)
		return nil, internalError(err)
	}
	if result.IsError {
		s.logger.Warn("tool returned error", "tool", name)
	}
	return result, nil
}

func empty(context.Context, *jsonrpc.Request) (any, *jsonrpc.Error) {
	return &mcpgo.EmptyResult{}, nil
}

func listResources(context.Context, *jsonrpc.Request) (any, *jsonrpc.Error) {
	return &mcpgo.ListResourcesResult{Resources: []mcpgo.Resource{}}, nil
}

func listResourceTemplates(context.Context, *jsonrpc.Request) (any, *jsonrpc.Error) {
	return &mcpgo.ListResourceTemplatesResult{ResourceTemplates: []mcpgo.ResourceTemplate{}}, nil
}

func listPrompts(context.Context, *jsonrpc.Request) (any, *jsonrpc.Error) {
	return &mcpgo.ListPromptsResult{Prompts: []mcpgo.Prompt{}}, nil
}

func notImplemented(_ context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	return nil, jsonrpc.Errorf(jsonrpc.MethodNotFound, "Method not implemented: %s", req.Method)
}

func internalError(err error) *jsonrpc.Error {
	return &jsonrpc.Error{Code: jsonrpc.InternalError, Message: "Internal error", Data: err.Error()}
}
