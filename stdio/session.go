package stdio

import (
	"io"
	"log/slog"

	"github.com/fwojciec/rustdoc/jsonrpc"
)

// Session pairs a Reader and a Writer over one connection and owns the
// latched framing mode. The first successfully parsed message fixes the
// framing used for every message written afterwards.
//
// A Session is not safe for concurrent use.
type Session struct {
	reader  *Reader
	writer  *Writer
	framing Framing
	logger  *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the logger used for transport diagnostics.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithMaxMessageSize bounds the size of a single incoming message.
// Defaults to DefaultMaxMessageSize.
func WithMaxMessageSize(n int) SessionOption {
	return func(s *Session) {
		s.reader.MaxMessageSize = n
	}
}

// NewSession creates a Session reading from r and writing to w.
func NewSession(r io.Reader, w io.Writer, opts ...SessionOption) *Session {
	s := &Session{
		reader: NewReader(r),
		writer: NewWriter(w),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the next message from the peer, latching the framing mode
// on the first success.
func (s *Session) Read() (jsonrpc.Message, error) {
	msg, framing, err := s.reader.Read()
	if err != nil {
		return nil, err
	}
	if s.framing == FramingUnset {
		s.framing = framing
		s.logger.Debug("stdio mode", "framing", framing.String())
	}
	return msg, nil
}

// Write sends v framed in the latched mode, or newline-delimited when no
// message has been read yet.
func (s *Session) Write(v any) error {
	return s.writer.Write(v, s.framing)
}

// Framing returns the latched framing mode.
func (s *Session) Framing() Framing {
	return s.framing
}
