package fsbridge

import (
	"log/slog"
	"time"

	"github.com/fsbridge/fsbridge-go/internal/config"
)

// ClientOptions configures the client connector and its server subprocess.
// This is a type alias to the internal options struct.
type ClientOptions = config.Options

// Option configures ClientOptions using the functional options pattern.
type Option func(*ClientOptions)

// applyOptions applies functional options to a fresh ClientOptions struct.
func applyOptions(opts []Option) *ClientOptions {
	options := &ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *ClientOptions) {
		o.Logger = logger
	}
}

// WithCommand sets the tool server executable to spawn.
// If not set, "fsbridged" is searched in PATH.
func WithCommand(command string, args ...string) Option {
	return func(o *ClientOptions) {
		o.Command = command
		o.Args = args
	}
}

// WithRoot sets the sandbox root directory the server is started with.
// If not set, the server defaults to its own working directory.
func WithRoot(root string) Option {
	return func(o *ClientOptions) {
		o.Root = root
	}
}

// WithCwd sets the working directory for the server process.
func WithCwd(cwd string) Option {
	return func(o *ClientOptions) {
		o.Cwd = cwd
	}
}

// WithEnv provides additional environment variables for the server process.
func WithEnv(env map[string]string) Option {
	return func(o *ClientOptions) {
		o.Env = env
	}
}

// WithDefaultTimeout bounds each tool call when the caller does not supply
// an explicit timeout. Defaults to 30 seconds.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(o *ClientOptions) {
		o.DefaultTimeout = timeout
	}
}

// WithStderr sets a callback receiving each line of the server's diagnostic
// stream. The diagnostic stream is never parsed by the protocol codec.
func WithStderr(callback func(string)) Option {
	return func(o *ClientOptions) {
		o.Stderr = callback
	}
}

// WithTransport injects a custom transport implementation.
// If not set, the default subprocess transport is created automatically.
func WithTransport(transport Transport) Option {
	return func(o *ClientOptions) {
		o.Transport = transport
	}
}
