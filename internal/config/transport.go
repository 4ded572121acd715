package config

import (
	"context"

	"github.com/fsbridge/fsbridge-go/internal/wire"
)

// Transport defines the byte-stream link to the tool server.
// Implement this to provide custom transports for testing, mocking, or
// alternative process supervision.
//
// The default implementation spawns the server as a subprocess and frames
// messages over its stdin/stdout pipes, with stderr as a separate diagnostic
// stream.
type Transport interface {
	// Start establishes the connection (spawns the subprocess for the
	// default transport).
	Start(ctx context.Context) error

	// ReadFrames returns channels yielding decoded inbound frames and
	// transport errors. Both channels close when the transport stops.
	ReadFrames(ctx context.Context) (<-chan wire.Frame, <-chan error)

	// SendFrame writes one frame to the outbound stream. Implementations
	// must serialize concurrent writes to preserve frame integrity.
	SendFrame(ctx context.Context, frame wire.Frame) error

	// IsReady reports whether the transport can accept frames.
	IsReady() bool

	// Close tears the connection down. It is safe to call multiple times.
	Close() error
}
