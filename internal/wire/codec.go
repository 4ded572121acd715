package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fsbridge/fsbridge-go/internal/errors"
)

// MaxFrameSize is the maximum size of a single encoded frame.
const MaxFrameSize = 1024 * 1024 // 1MB

// Encoder writes frames to a byte stream, one complete JSON object per line.
//
// Encode is safe for concurrent use: an internal mutex serializes writes so
// frames from concurrent handlers can never interleave bytes. All response
// writers on a connection must share one Encoder.
type Encoder struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode marshals frame, appends the line delimiter, and flushes.
func (e *Encoder) Encode(frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write frame delimiter: %w", err)
	}

	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush frame: %w", err)
	}

	return nil
}

// Decoder produces frames from a continuous byte stream.
//
// It buffers partial reads until a full line is available, so a frame split
// across I/O chunks decodes once complete. An unparsable line yields
// *errors.MalformedFrameError without consuming subsequent lines; the caller
// decides whether to skip the line or tear the connection down.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, MaxFrameSize)
	scanner.Buffer(buf, MaxFrameSize)

	return &Decoder{scanner: scanner}
}

// Next returns the next frame on the stream. It returns io.EOF at end of
// stream and *errors.MalformedFrameError for an unparsable line. Blank lines
// are skipped.
func (d *Decoder) Next() (Frame, error) {
	for d.scanner.Scan() {
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		return decodeFrame(line)
	}

	if err := d.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}

	return nil, io.EOF
}

// decodeFrame parses one complete line into a typed frame.
func decodeFrame(line []byte) (Frame, error) {
	var probe struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, &errors.MalformedFrameError{RawData: string(line), Err: err}
	}

	switch probe.Type {
	case TypeRequest:
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			return nil, &errors.MalformedFrameError{RawData: string(line), Err: err}
		}

		return &req, nil

	case TypeResponse:
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			return nil, &errors.MalformedFrameError{RawData: string(line), Err: err}
		}

		return &resp, nil

	default:
		return nil, &errors.MalformedFrameError{
			RawData: string(line),
			Err:     fmt.Errorf("unknown frame type %q", probe.Type),
		}
	}
}
