package main

import (
	"strings"
	"time"
)

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Debug      bool          `help:"Log at debug level and mirror logs to stderr (also RUSTDOC_MCP_DEBUG)"`
	LogFile    string        `name:"log-file" env:"RUSTDOC_MCP_LOG_FILE,KOMODO_DOCS_MCP_LOG_FILE" help:"Append logs to this file"`
	UserAgent  string        `name:"user-agent" env:"RUSTDOC_MCP_USER_AGENT,KOMODO_DOCS_MCP_USER_AGENT" help:"User-Agent sent to docs.rs"`
	Crate      string        `default:"komodo_client" env:"RUSTDOC_MCP_CRATE" help:"Crate looked up when a tool call names none"`
	ToolPrefix string        `name:"tool-prefix" default:"komodo_docs" env:"RUSTDOC_MCP_TOOL_PREFIX" help:"Prefix of every tool name"`
	BaseURL    string        `name:"base-url" default:"https://docs.rs/" env:"RUSTDOC_MCP_BASE_URL" help:"Documentation host"`
	CacheTTL   time.Duration `name:"cache-ttl" default:"300s" env:"RUSTDOC_MCP_CACHE_TTL" help:"How long fetched pages are reused (0 disables)"`
	Timeout    time.Duration `default:"20s" env:"RUSTDOC_MCP_TIMEOUT" help:"Timeout of a single docs.rs request"`
	RateLimit  float64       `name:"rate-limit" default:"5" env:"RUSTDOC_MCP_RATE_LIMIT" help:"Maximum docs.rs requests per second (0 disables)"`
	Version    bool          `help:"Print the version and exit"`
}

// debugEnv lists the variables that switch on debug logging.
var debugEnv = []string{"RUSTDOC_MCP_DEBUG", "KOMODO_DOCS_MCP_DEBUG"}

// isTruthy reports whether an environment value enables a toggle.
func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
