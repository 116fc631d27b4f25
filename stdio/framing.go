// Package stdio implements the JSON-RPC stdio transport. It accepts both
// Content-Length framed messages and bare newline-delimited JSON, detects
// which one the peer speaks and answers in kind.
package stdio

// Framing identifies how messages are delimited on the wire.
type Framing int

// Framing modes. A session starts unset and latches the mode of the first
// message it parses successfully.
const (
	FramingUnset Framing = iota
	FramingLengthPrefixed
	FramingNewlineDelimited
)

// String returns the wire name of the framing mode.
func (f Framing) String() string {
	switch f {
	case FramingLengthPrefixed:
		return "content-length"
	case FramingNewlineDelimited:
		return "ndjson"
	default:
		return "unset"
	}
}
