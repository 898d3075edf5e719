package llm

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

const ssePrefix = "data: "

// sseMaxLineBytes bounds a single event line. Backend frames carrying large
// base64 payloads can exceed bufio's default 64KB token size.
const sseMaxLineBytes = 1024 * 1024

// SSEDecoder reassembles arbitrarily fragmented reads from a live connection
// into discrete event payloads. Lines prefixed with "data: " are events;
// everything else (comments, event names, blank keep-alives) is skipped.
// An optional sentinel value (e.g. "[DONE]") terminates the stream without
// being parsed. The underlying body is closed exactly once, on every exit
// path.
type SSEDecoder struct {
	body     io.ReadCloser
	scanner  *bufio.Scanner
	sentinel string
	closed   sync.Once
	closeErr error
	done     atomic.Bool
}

// NewSSEDecoder creates a decoder over body. sentinel may be empty for
// backends that end the stream by closing the connection.
func NewSSEDecoder(body io.ReadCloser, sentinel string) *SSEDecoder {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), sseMaxLineBytes)
	return &SSEDecoder{
		body:     body,
		scanner:  scanner,
		sentinel: sentinel,
	}
}

// Next returns the next event payload. It returns io.EOF when the stream is
// over, whether by sentinel, clean connection close, or a prior Close call.
// On any terminal outcome the underlying body has been released.
func (d *SSEDecoder) Next() ([]byte, error) {
	if d.done.Load() {
		return nil, io.EOF
	}

	for d.scanner.Scan() {
		line := d.scanner.Text()
		if !strings.HasPrefix(line, ssePrefix) {
			continue
		}
		payload := strings.TrimPrefix(line, ssePrefix)
		if d.sentinel != "" && strings.TrimSpace(payload) == d.sentinel {
			d.finish()
			return nil, io.EOF
		}
		return []byte(payload), nil
	}

	err := d.scanner.Err()
	d.finish()
	if err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close releases the underlying body. Safe to call multiple times and
// concurrently with an aborted read.
func (d *SSEDecoder) Close() error {
	d.finish()
	return d.closeErr
}

// finish marks the decoder done and releases the body. closeErr is written
// inside the Once and only read after a finish call returns, so the Once's
// completion ordering makes it safe for concurrent Close/Next.
func (d *SSEDecoder) finish() {
	d.done.Store(true)
	d.closed.Do(func() {
		d.closeErr = d.body.Close()
	})
}
