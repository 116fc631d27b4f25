package stdio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/fwojciec/rustdoc/jsonrpc"
)

// DefaultMaxMessageSize bounds how many bytes may be buffered while waiting
// for a single message to complete.
const DefaultMaxMessageSize = 32 << 20

const (
	readChunkSize            = 4096
	maxConsecutiveEmptyReads = 100
)

var lengthHeader = []byte("content-length:")

// ErrMessageTooLarge is returned when the buffer outgrows the reader's
// maximum message size without yielding a complete message.
var ErrMessageTooLarge = errors.New("stdio: message exceeds maximum size")

var errNullMessage = errors.New("message is null")

// ParseError reports a complete message that is not a valid JSON object.
// The offending bytes have already been discarded, so reading may continue.
type ParseError struct {
	Framing Framing
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("stdio: malformed %s message: %v", e.Framing, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// HeaderError reports a Content-Length header block without a usable length.
// The message boundary is unknown after this, so the stream cannot be
// resynchronized.
type HeaderError struct {
	Header string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("stdio: invalid Content-Length header: %q", e.Header)
}

// Reader reads JSON-RPC messages from a byte stream, auto-detecting
// Content-Length framing and newline-delimited JSON per message.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	// MaxMessageSize caps the buffered bytes of one pending message.
	MaxMessageSize int

	r   io.Reader
	buf []byte
	err error // deferred read error

	// atEOF is set once the stream has ended with bytes still buffered, so
	// a value touching the end of the buffer is final.
	atEOF bool

	// skipLine is set after a syntax error in newline-delimited mode
	// when the rest of the bad line has not arrived yet.
	skipLine bool
}

// NewReader returns a Reader that consumes r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		MaxMessageSize: DefaultMaxMessageSize,
		r:              r,
	}
}

// Read returns the next message and the framing it arrived in.
//
// It returns io.EOF once the stream is exhausted between messages and
// io.ErrUnexpectedEOF when the stream ends inside a message. A *ParseError
// is recoverable; any other error is not.
func (r *Reader) Read() (jsonrpc.Message, Framing, error) {
	for {
		if r.skipLine {
			idx := bytes.IndexByte(r.buf, '\n')
			if idx < 0 {
				r.buf = r.buf[:0]
				if err := r.fill(); err != nil {
					return nil, FramingUnset, err
				}
				continue
			}
			r.consume(idx + 1)
			r.skipLine = false
		}

		r.buf = bytes.TrimLeft(r.buf, " \t\r\n")
		if len(r.buf) == 0 {
			if err := r.fill(); err != nil {
				return nil, FramingUnset, err
			}
			continue
		}

		var (
			msg     jsonrpc.Message
			framing Framing
			ok      bool
			err     error
		)
		switch {
		case isHeaderPrefix(r.buf):
			// Too short to tell a header from raw JSON yet.
		case hasLengthHeader(r.buf):
			framing = FramingLengthPrefixed
			msg, ok, err = r.readLengthPrefixed()
		default:
			framing = FramingNewlineDelimited
			msg, ok, err = r.readRaw()
		}
		if err != nil {
			return nil, framing, err
		}
		if ok {
			return msg, framing, nil
		}

		if err := r.fill(); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) && framing == FramingNewlineDelimited && !r.atEOF {
				r.atEOF = true
				continue
			}
			return nil, framing, err
		}
	}
}

// readLengthPrefixed parses a header block and its body. It reports
// ok=false when more bytes are needed.
func (r *Reader) readLengthPrefixed() (jsonrpc.Message, bool, error) {
	end, sepLen := headerEnd(r.buf)
	if end < 0 {
		if len(r.buf) > r.MaxMessageSize {
			return nil, false, ErrMessageTooLarge
		}
		return nil, false, nil
	}

	header := string(r.buf[:end])
	length, err := parseContentLength(header)
	if err != nil {
		return nil, false, err
	}
	if length > r.MaxMessageSize {
		return nil, false, ErrMessageTooLarge
	}

	bodyStart := end + sepLen
	need := bodyStart + length
	if len(r.buf) < need {
		return nil, false, nil
	}

	body := r.buf[bodyStart:need]
	var msg jsonrpc.Message
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	err = dec.Decode(&msg)
	r.consume(need)
	if err == nil && msg == nil {
		err = errNullMessage
	}
	if err != nil {
		return nil, false, &ParseError{Framing: FramingLengthPrefixed, Err: err}
	}
	return msg, true, nil
}

// readRaw decodes one JSON value from the start of the buffer. Truncated
// input reports ok=false; the consumed span is measured in bytes.
func (r *Reader) readRaw() (jsonrpc.Message, bool, error) {
	var msg jsonrpc.Message
	dec := json.NewDecoder(bytes.NewReader(r.buf))
	dec.UseNumber()
	err := dec.Decode(&msg)

	var typeErr *json.UnmarshalTypeError
	end := int(dec.InputOffset())
	switch {
	case err == nil && msg != nil:
		r.consume(end)
		return msg, true, nil
	case err == nil, errors.As(err, &typeErr):
		// A complete JSON value that is not an object. Only arrays are
		// self-delimiting; a scalar ending exactly at the end of the buffer
		// may continue in the next read.
		if end == len(r.buf) && r.buf[end-1] != ']' && !r.atEOF {
			if len(r.buf) > r.MaxMessageSize {
				return nil, false, ErrMessageTooLarge
			}
			return nil, false, nil
		}
		r.consume(end)
		if err == nil {
			err = errNullMessage
		}
		return nil, false, &ParseError{Framing: FramingNewlineDelimited, Err: err}
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		if len(r.buf) > r.MaxMessageSize {
			return nil, false, ErrMessageTooLarge
		}
		return nil, false, nil
	default:
		r.skipLine = true
		return nil, false, &ParseError{Framing: FramingNewlineDelimited, Err: err}
	}
}

// fill appends the next chunk from the underlying reader to the buffer.
// The read size grows with the pending message so that large messages are
// not re-decoded once per small chunk.
func (r *Reader) fill() error {
	if r.err != nil {
		return r.eof(r.err)
	}

	for range maxConsecutiveEmptyReads {
		if free := cap(r.buf) - len(r.buf); free < readChunkSize {
			r.buf = slices.Grow(r.buf, max(readChunkSize, len(r.buf)))
		}
		n, err := r.r.Read(r.buf[len(r.buf):cap(r.buf)])
		r.buf = r.buf[:len(r.buf)+n]
		if n > 0 {
			r.err = err
			return nil
		}
		if err != nil {
			r.err = err
			return r.eof(err)
		}
	}
	return r.eof(io.EOF)
}

// eof maps end-of-stream to io.ErrUnexpectedEOF when a partial message is
// still buffered.
func (r *Reader) eof(err error) error {
	if !errors.Is(err, io.EOF) {
		return err
	}
	if len(bytes.TrimSpace(r.buf)) > 0 && !r.skipLine {
		return io.ErrUnexpectedEOF
	}
	return io.EOF
}

// consume drops the first n bytes of the buffer.
func (r *Reader) consume(n int) {
	r.buf = append(r.buf[:0], r.buf[n:]...)
}

func hasLengthHeader(buf []byte) bool {
	return len(buf) >= len(lengthHeader) && bytes.EqualFold(buf[:len(lengthHeader)], lengthHeader)
}

// isHeaderPrefix reports whether buf is a strict prefix of the length
// header, in which case framing cannot be decided yet.
func isHeaderPrefix(buf []byte) bool {
	return len(buf) < len(lengthHeader) && bytes.EqualFold(buf, lengthHeader[:len(buf)])
}

// headerEnd returns the index of the earliest header/body separator and its
// length, or -1 if none is buffered yet.
func headerEnd(buf []byte) (int, int) {
	crlf := bytes.Index(buf, []byte("\r\n\r\n"))
	lf := bytes.Index(buf, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return crlf, 4
	case lf >= 0:
		return lf, 2
	default:
		return -1, 0
	}
}

func parseContentLength(header string) (int, error) {
	for _, line := range strings.Split(header, "\n") {
		line = strings.TrimRight(line, "\r")
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "content-length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return 0, &HeaderError{Header: header}
		}
		return n, nil
	}
	return 0, &HeaderError{Header: header}
}
