package fsbridge

import (
	"context"
	"time"

	"github.com/fsbridge/fsbridge-go/internal/wire"
)

// Content is one typed chunk of a tool result payload.
type Content = wire.Content

// ToolInfo advertises one callable tool: name, description, and input
// schema. The listing is produced once at connection start and is immutable
// for the connection's lifetime.
type ToolInfo = wire.ToolInfo

// Client is the agent-side connector to the tool server.
//
// Lifecycle: clients are single-use. Start spawns and supervises the server
// subprocess; once the connection is lost (subprocess death, stream closure,
// protocol desync) every call fails with *ConnectionLostError and recovery
// means creating a new client. Whether and when to reconnect is the caller's
// policy decision.
//
// Calls are safe for concurrent use. Each call suspends only its own
// goroutine; responses are matched by correlation id, not arrival order.
//
// Example:
//
//	client := fsbridge.NewClient()
//	defer client.Close()
//
//	if err := client.Start(ctx, fsbridge.WithRoot("/data")); err != nil {
//	    log.Fatal(err)
//	}
//
//	content, err := client.Call(ctx, "list_directory", map[string]any{"path": "."})
type Client interface {
	// Start establishes the connection to the tool server.
	// Must be called before any other methods.
	// Returns *ServerNotFoundError if the server binary is not found.
	Start(ctx context.Context, opts ...Option) error

	// Call invokes a named tool with the configured default timeout and
	// returns the result's ordered content chunks.
	Call(ctx context.Context, tool string, args map[string]any) ([]Content, error)

	// CallWithTimeout invokes a named tool with an explicit timeout.
	// A timeout fails the call with *ToolCallTimeoutError and discards any
	// late response; it does not interrupt the server-side handler.
	CallWithTimeout(
		ctx context.Context,
		tool string,
		args map[string]any,
		timeout time.Duration,
	) ([]Content, error)

	// ListTools fetches the server's tool descriptor listing.
	ListTools(ctx context.Context) ([]ToolInfo, error)

	// Lost reports whether the connection is in the terminal Lost state.
	Lost() bool

	// Close terminates the server subprocess and fails all pending calls.
	Close() error
}

// NewClient creates a new, unconnected client. Call Start with options to
// connect.
func NewClient() Client {
	return newClientImpl()
}
