package stdio_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/fwojciec/rustdoc/jsonrpc"
	"github.com/fwojciec/rustdoc/stdio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader returns at most size bytes per Read call.
type chunkReader struct {
	data []byte
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := min(len(p), c.size, len(c.data))
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

// scriptReader returns one scripted chunk per Read call.
type scriptReader struct {
	chunks []string
	reads  int
}

func (s *scriptReader) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		return 0, io.EOF
	}
	s.reads++
	n := copy(p, s.chunks[0])
	s.chunks[0] = s.chunks[0][n:]
	if s.chunks[0] == "" {
		s.chunks = s.chunks[1:]
	}
	return n, nil
}

// emptyReader never makes progress.
type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, nil }

type readResult struct {
	Msg     jsonrpc.Message
	Framing stdio.Framing
}

func readAll(t *testing.T, r io.Reader) ([]readResult, error) {
	t.Helper()

	reader := stdio.NewReader(r)
	var out []readResult
	for {
		msg, framing, err := reader.Read()
		if err != nil {
			return out, err
		}
		out = append(out, readResult{Msg: msg, Framing: framing})
	}
}

func framed(body string) string {
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func TestReader_NewlineDelimited(t *testing.T) {
	t.Parallel()

	t.Run("reads consecutive messages", func(t *testing.T) {
		t.Parallel()

		in := `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n" + `{"jsonrpc":"2.0","method":"initialized"}` + "\n"

		got, err := readAll(t, strings.NewReader(in))

		require.ErrorIs(t, err, io.EOF)
		require.Len(t, got, 2)
		assert.Equal(t, "ping", got[0].Msg["method"])
		assert.Equal(t, stdio.FramingNewlineDelimited, got[0].Framing)
		assert.Equal(t, "initialized", got[1].Msg["method"])
	})

	t.Run("does not require a trailing newline", func(t *testing.T) {
		t.Parallel()

		got, err := readAll(t, strings.NewReader(`{"a":1}{"b":2}`))

		require.ErrorIs(t, err, io.EOF)
		require.Len(t, got, 2)
		assert.Contains(t, got[1].Msg, "b")
	})

	t.Run("tolerates blank lines between messages", func(t *testing.T) {
		t.Parallel()

		got, err := readAll(t, strings.NewReader("\r\n\n\t {\"a\":1}\n\n\n{\"b\":2}\r\n  "))

		require.ErrorIs(t, err, io.EOF)
		assert.Len(t, got, 2)
	})

	t.Run("keeps numeric ids exact", func(t *testing.T) {
		t.Parallel()

		got, err := readAll(t, strings.NewReader(`{"id":9007199254740993}`))

		require.ErrorIs(t, err, io.EOF)
		require.Len(t, got, 1)
		assert.Equal(t, "9007199254740993", fmt.Sprint(got[0].Msg["id"]))
	})
}

func TestReader_LengthPrefixed(t *testing.T) {
	t.Parallel()

	t.Run("reads CRLF separated messages", func(t *testing.T) {
		t.Parallel()

		in := framed(`{"id":1,"method":"ping"}`) + framed(`{"id":2,"method":"tools/list"}`)

		got, err := readAll(t, strings.NewReader(in))

		require.ErrorIs(t, err, io.EOF)
		require.Len(t, got, 2)
		assert.Equal(t, stdio.FramingLengthPrefixed, got[0].Framing)
		assert.Equal(t, "tools/list", got[1].Msg["method"])
	})

	t.Run("accepts LF separator and any header case", func(t *testing.T) {
		t.Parallel()

		body := `{"method":"ping"}`
		in := fmt.Sprintf("content-LENGTH: %d\nContent-Type: application/json\n\n%s", len(body), body)

		got, err := readAll(t, strings.NewReader(in))

		require.ErrorIs(t, err, io.EOF)
		require.Len(t, got, 1)
		assert.Equal(t, "ping", got[0].Msg["method"])
	})

	t.Run("counts body length in bytes", func(t *testing.T) {
		t.Parallel()

		body := `{"text":"héllo — 日本"}`
		in := framed(body) + framed(`{"n":2}`)

		got, err := readAll(t, strings.NewReader(in))

		require.ErrorIs(t, err, io.EOF)
		require.Len(t, got, 2)
		assert.Equal(t, "héllo — 日本", got[0].Msg["text"])
	})

	t.Run("waits for a body that arrives later", func(t *testing.T) {
		t.Parallel()

		body := `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"x"}}`
		in := framed(body)
		src := &scriptReader{chunks: []string{in[:30], in[30:40], in[40:]}}
		reader := stdio.NewReader(src)

		msg, framing, err := reader.Read()

		require.NoError(t, err)
		assert.Equal(t, stdio.FramingLengthPrefixed, framing)
		assert.Equal(t, "tools/call", msg["method"])
		assert.Equal(t, 3, src.reads)
	})

	t.Run("waits for the header separator", func(t *testing.T) {
		t.Parallel()

		body := `{"id":1}`
		src := &scriptReader{chunks: []string{"Content-", "Length: 8\r", "\n\r\n", body}}

		got, err := readAll(t, src)

		require.ErrorIs(t, err, io.EOF)
		require.Len(t, got, 1)
		assert.Equal(t, stdio.FramingLengthPrefixed, got[0].Framing)
	})

	t.Run("invalid length is unrecoverable", func(t *testing.T) {
		t.Parallel()

		_, err := readAll(t, strings.NewReader("Content-Length: abc\r\n\r\n{}"))

		var headerErr *stdio.HeaderError
		require.ErrorAs(t, err, &headerErr)
	})

	t.Run("negative length is unrecoverable", func(t *testing.T) {
		t.Parallel()

		_, err := readAll(t, strings.NewReader("Content-Length: -4\r\n\r\n{}"))

		var headerErr *stdio.HeaderError
		require.ErrorAs(t, err, &headerErr)
	})

	t.Run("malformed body is skipped", func(t *testing.T) {
		t.Parallel()

		reader := stdio.NewReader(strings.NewReader(framed(`{oops}`) + framed(`{"id":2}`)))

		_, _, err := reader.Read()
		var parseErr *stdio.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, stdio.FramingLengthPrefixed, parseErr.Framing)

		msg, _, err := reader.Read()
		require.NoError(t, err)
		assert.Contains(t, msg, "id")
	})
}

func TestReader_ChunkSizeIndependence(t *testing.T) {
	t.Parallel()

	stream := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		"\n",
		framed(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"arguments":{"query":"日本語 — ünïcode"}}}`),
		"\r\n",
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		"\n\n",
		framed(`{"jsonrpc":"2.0","id":"abc","method":"ping"}`),
		`{"jsonrpc":"2.0","id":3,"method":"tools/list","params":{"emoji":"🦀"}}`,
	}, "")

	want, err := readAll(t, strings.NewReader(stream))
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, want, 5)

	for size := 1; size <= 64; size++ {
		t.Run(fmt.Sprintf("chunk size %d", size), func(t *testing.T) {
			t.Parallel()

			got, err := readAll(t, &chunkReader{data: []byte(stream), size: size})

			require.ErrorIs(t, err, io.EOF)
			assert.Equal(t, want, got)
		})
	}

	t.Run("one byte reader", func(t *testing.T) {
		t.Parallel()

		got, err := readAll(t, iotest.OneByteReader(strings.NewReader(stream)))

		require.ErrorIs(t, err, io.EOF)
		assert.Equal(t, want, got)
	})

	t.Run("data with EOF reader", func(t *testing.T) {
		t.Parallel()

		got, err := readAll(t, iotest.DataErrReader(strings.NewReader(stream)))

		require.ErrorIs(t, err, io.EOF)
		assert.Equal(t, want, got)
	})
}

// outcomes reads r to the end and lists each result as "msg" or "parse
// error", stopping at the first unrecoverable error.
func outcomes(t *testing.T, r io.Reader) ([]string, error) {
	t.Helper()

	reader := stdio.NewReader(r)
	var out []string
	for {
		_, _, err := reader.Read()
		var parseErr *stdio.ParseError
		switch {
		case err == nil:
			out = append(out, "msg")
		case errors.As(err, &parseErr):
			out = append(out, "parse error")
		default:
			return out, err
		}
	}
}

func TestReader_ChunkSizeIndependence_Scalars(t *testing.T) {
	t.Parallel()

	stream := "12345\n" +
		`"text"` + "\n" +
		"nullx\n" +
		"[1,2]" +
		`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n" +
		"-1.5e3"

	want := []string{"parse error", "parse error", "parse error", "parse error", "msg", "parse error"}

	got, err := outcomes(t, strings.NewReader(stream))
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, want, got)

	for size := 1; size <= 8; size++ {
		t.Run(fmt.Sprintf("chunk size %d", size), func(t *testing.T) {
			t.Parallel()

			got, err := outcomes(t, &chunkReader{data: []byte(stream), size: size})
			require.ErrorIs(t, err, io.EOF)
			assert.Equal(t, want, got)
		})
	}

	t.Run("one byte reader", func(t *testing.T) {
		t.Parallel()

		got, err := outcomes(t, iotest.OneByteReader(strings.NewReader(stream)))
		require.ErrorIs(t, err, io.EOF)
		assert.Equal(t, want, got)
	})

	t.Run("data with EOF reader", func(t *testing.T) {
		t.Parallel()

		got, err := outcomes(t, iotest.DataErrReader(strings.NewReader(stream)))
		require.ErrorIs(t, err, io.EOF)
		assert.Equal(t, want, got)
	})
}

func TestReader_MalformedJSON(t *testing.T) {
	t.Parallel()

	t.Run("resynchronizes on the next line", func(t *testing.T) {
		t.Parallel()

		reader := stdio.NewReader(strings.NewReader("{not json at all}\n{\"id\":2}\n"))

		_, framing, err := reader.Read()
		var parseErr *stdio.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, stdio.FramingNewlineDelimited, framing)

		msg, _, err := reader.Read()
		require.NoError(t, err)
		assert.Equal(t, "2", fmt.Sprint(msg["id"]))

		_, _, err = reader.Read()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("reports one error per bad line regardless of chunking", func(t *testing.T) {
		t.Parallel()

		in := "garbage that spans several reads\n{\"id\":1}\n"
		reader := stdio.NewReader(&chunkReader{data: []byte(in), size: 3})

		var parseErrors int
		var msgs []jsonrpc.Message
		for {
			msg, _, err := reader.Read()
			var parseErr *stdio.ParseError
			if errors.As(err, &parseErr) {
				parseErrors++
				continue
			}
			if err != nil {
				require.ErrorIs(t, err, io.EOF)
				break
			}
			msgs = append(msgs, msg)
		}

		assert.Equal(t, 1, parseErrors)
		require.Len(t, msgs, 1)
	})

	t.Run("rejects values that are not objects", func(t *testing.T) {
		t.Parallel()

		reader := stdio.NewReader(strings.NewReader("[1,2]\nnull\n{\"id\":3}"))

		_, _, err := reader.Read()
		var parseErr *stdio.ParseError
		require.ErrorAs(t, err, &parseErr)

		_, _, err = reader.Read()
		require.ErrorAs(t, err, &parseErr)

		msg, _, err := reader.Read()
		require.NoError(t, err)
		assert.Contains(t, msg, "id")
	})

	t.Run("does not treat a split header as JSON", func(t *testing.T) {
		t.Parallel()

		src := &scriptReader{chunks: []string{"Cont", "ent-Length: 2\r\n\r\n{}"}}

		got, err := readAll(t, src)

		require.ErrorIs(t, err, io.EOF)
		require.Len(t, got, 1)
		assert.Equal(t, stdio.FramingLengthPrefixed, got[0].Framing)
	})
}

func TestReader_EndOfStream(t *testing.T) {
	t.Parallel()

	t.Run("empty stream", func(t *testing.T) {
		t.Parallel()

		_, _, err := stdio.NewReader(strings.NewReader("")).Read()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("whitespace only", func(t *testing.T) {
		t.Parallel()

		_, _, err := stdio.NewReader(strings.NewReader(" \r\n\t\n")).Read()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("repeated zero-length reads", func(t *testing.T) {
		t.Parallel()

		_, _, err := stdio.NewReader(emptyReader{}).Read()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("truncated raw message", func(t *testing.T) {
		t.Parallel()

		_, _, err := stdio.NewReader(strings.NewReader(`{"id":1,"method":"pi`)).Read()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("truncated length-prefixed body", func(t *testing.T) {
		t.Parallel()

		_, _, err := stdio.NewReader(strings.NewReader("Content-Length: 100\r\n\r\n{}")).Read()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("propagates read errors", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		_, _, err := stdio.NewReader(iotest.ErrReader(boom)).Read()
		assert.ErrorIs(t, err, boom)
	})
}

func TestReader_MaxMessageSize(t *testing.T) {
	t.Parallel()

	t.Run("declared length too large", func(t *testing.T) {
		t.Parallel()

		reader := stdio.NewReader(strings.NewReader("Content-Length: 1000\r\n\r\n"))
		reader.MaxMessageSize = 100

		_, _, err := reader.Read()
		assert.ErrorIs(t, err, stdio.ErrMessageTooLarge)
	})

	t.Run("unterminated raw message too large", func(t *testing.T) {
		t.Parallel()

		in := `{"data":"` + strings.Repeat("x", 10000)
		reader := stdio.NewReader(bytes.NewReader([]byte(in)))
		reader.MaxMessageSize = 1024

		_, _, err := reader.Read()
		assert.ErrorIs(t, err, stdio.ErrMessageTooLarge)
	})
}
