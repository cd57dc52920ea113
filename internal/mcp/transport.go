package mcp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// framing is how a message arrived on stdin; replies use the same framing.
type framing int

const (
	// framingLine is one JSON document per line.
	framingLine framing = iota
	// framingHeader is an LSP-style Content-Length header block followed
	// by the payload.
	framingHeader
)

// maxMessageSize bounds a single framed payload.
const maxMessageSize = 32 << 20

type message struct {
	payload []byte
	framing framing
}

type stdioTransport struct {
	reader *bufio.Reader

	mu     sync.Mutex
	writer io.Writer
}

func newStdioTransport(r io.Reader, w io.Writer) *stdioTransport {
	return &stdioTransport{
		reader: bufio.NewReaderSize(r, 64*1024),
		writer: w,
	}
}

// read returns the next message. It returns io.EOF once the input is
// exhausted between messages.
func (t *stdioTransport) read() (message, error) {
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return message{}, fmt.Errorf("read mcp message: %w", err)
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if err != nil {
				return message{}, io.EOF
			}
			continue
		}

		if !isHeaderLine(trimmed) {
			return message{payload: []byte(trimmed), framing: framingLine}, nil
		}
		if err != nil {
			return message{}, fmt.Errorf("read mcp header: %w", io.ErrUnexpectedEOF)
		}

		contentLength, err := readContentLength(trimmed, t.reader)
		if err != nil {
			return message{}, err
		}
		body := make([]byte, contentLength)
		if _, err := io.ReadFull(t.reader, body); err != nil {
			return message{}, fmt.Errorf("read mcp payload: %w", err)
		}
		return message{payload: body, framing: framingHeader}, nil
	}
}

func (t *stdioTransport) write(payload []byte, mode framing) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if mode == framingHeader {
		header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(payload))
		if _, err := io.WriteString(t.writer, header); err != nil {
			return fmt.Errorf("write mcp header: %w", err)
		}
		if _, err := t.writer.Write(payload); err != nil {
			return fmt.Errorf("write mcp payload: %w", err)
		}
		return nil
	}

	line := make([]byte, 0, len(payload)+1)
	line = append(line, bytes.TrimSpace(payload)...)
	line = append(line, '\n')
	if _, err := t.writer.Write(line); err != nil {
		return fmt.Errorf("write mcp message: %w", err)
	}
	return nil
}

func isHeaderLine(line string) bool {
	return strings.HasPrefix(strings.ToLower(line), "content-")
}

// readContentLength parses the header block whose first line has already
// been consumed, stopping after the blank separator line.
func readContentLength(first string, reader *bufio.Reader) (int, error) {
	contentLength := -1
	line := first
	for {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[0]), "Content-Length") {
			value, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				return 0, fmt.Errorf("invalid content-length header %q: %w", line, err)
			}
			if value <= 0 || value > maxMessageSize {
				return 0, fmt.Errorf("invalid content-length value: %d", value)
			}
			contentLength = value
		}

		next, err := reader.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("read mcp header: %w", err)
		}
		line = strings.TrimSpace(next)
		if line == "" {
			break
		}
	}

	if contentLength <= 0 {
		return 0, fmt.Errorf("missing content-length header")
	}
	return contentLength, nil
}
