package mcp

import (
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// Method names understood by the server.
const (
	MethodInitialize               = string(mcpgo.MethodInitialize)
	MethodInitialized              = "initialized"
	MethodNotificationsInitialized = "notifications/initialized"
	MethodPing                     = string(mcpgo.MethodPing)
	MethodToolsList                = string(mcpgo.MethodToolsList)
	MethodToolsCall                = string(mcpgo.MethodToolsCall)
	MethodResourcesList            = string(mcpgo.MethodResourcesList)
	MethodResourcesTemplatesList   = string(mcpgo.MethodResourcesTemplatesList)
	MethodResourcesRead            = string(mcpgo.MethodResourcesRead)
	MethodPromptsList              = string(mcpgo.MethodPromptsList)
	MethodPromptsGet               = string(mcpgo.MethodPromptsGet)
)

// DefaultProtocolVersion is reported when the client does not send one.
const DefaultProtocolVersion = "2024-11-05"

// initializeResult overrides the library capabilities, whose flags are
// omitted when false, so that every flag is stated explicitly.
type initializeResult struct {
	mcpgo.InitializeResult
	Capabilities capabilities `json:"capabilities"`
}

type capabilities struct {
	Tools     listChanged        `json:"tools"`
	Resources resourceCapability `json:"resources"`
	Prompts   listChanged        `json:"prompts"`
}

type listChanged struct {
	ListChanged bool `json:"listChanged"`
}

type resourceCapability struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}
