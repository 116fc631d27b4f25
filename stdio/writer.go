package stdio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type flusher interface {
	Flush() error
}

// Writer serializes messages as compact JSON and frames them for the wire.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes v and writes it framed according to framing. Length-prefixed
// messages carry a Content-Length header equal to the UTF-8 byte length of
// the body and no trailing newline; every other mode writes the body
// followed by a single newline. The destination is flushed after each
// message when it supports flushing.
func (w *Writer) Write(v any, framing Framing) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	var out []byte
	switch framing {
	case FramingLengthPrefixed:
		payload := bytes.TrimSuffix(body.Bytes(), []byte("\n"))
		out = fmt.Appendf(make([]byte, 0, len(payload)+32), "Content-Length: %d\r\n\r\n", len(payload))
		out = append(out, payload...)
	default:
		// Encode already terminated the body with a newline.
		out = body.Bytes()
	}

	if _, err := w.w.Write(out); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if f, ok := w.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush message: %w", err)
		}
	}
	return nil
}
