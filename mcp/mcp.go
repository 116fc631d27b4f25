// Package mcp implements the Model Context Protocol method table on top of
// JSON-RPC 2.0: the dispatcher, tool registry and the documentation tools.
//
// The server handles one message at a time. A message is fully dispatched
// and its response written before the next one is read.
package mcp
