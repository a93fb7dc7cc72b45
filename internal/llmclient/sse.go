package llmclient

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxSSELineSize bounds a single SSE line. Longer lines fail with bufio.ErrTooLong.
const maxSSELineSize = 1 << 20

// SSEScanner reads Server-Sent Events data payloads from an io.Reader.
// Comments and non-data fields are skipped; the OpenAI "[DONE]" sentinel ends the stream.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner creates an SSEScanner reading from r.
func NewSSEScanner(r io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next event's data payload. Consecutive data lines are joined
// with newlines. Returns io.EOF at end of stream or on "[DONE]".
func (s *SSEScanner) Next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")

		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if data, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				return "", io.EOF
			}
			dataLines = append(dataLines, data)
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}

	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}
	return "", io.EOF
}
