package config

import (
	"log/slog"
	"time"
)

// DefaultCallTimeout is the per-call timeout used when none is configured.
const DefaultCallTimeout = 30 * time.Second

// Options configures the client connector and its server subprocess.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Command is the tool server executable to spawn.
	// If empty, "fsbridged" is searched in PATH.
	Command string

	// Args are extra arguments passed to the server command.
	Args []string

	// Root is the sandbox root directory the server is started with.
	// Passed to the server as --root. If empty, the server uses its own
	// default (the working directory).
	Root string

	// Cwd sets the working directory for the server process.
	Cwd string

	// Env provides additional environment variables for the server process.
	Env map[string]string

	// DefaultTimeout bounds each tool call when the caller does not supply
	// an explicit timeout. Zero means DefaultCallTimeout.
	DefaultTimeout time.Duration

	// Stderr is a callback receiving each line of the server's diagnostic
	// stream. The diagnostic stream is never parsed by the codec.
	Stderr func(string)

	// Transport allows injecting a custom transport implementation.
	// If nil, the default subprocess transport is created automatically.
	Transport Transport
}

// CallTimeout returns the effective per-call timeout.
func (o *Options) CallTimeout() time.Duration {
	if o.DefaultTimeout > 0 {
		return o.DefaultTimeout
	}

	return DefaultCallTimeout
}
