package fsbridge

import "github.com/fsbridge/fsbridge-go/internal/errors"

// Re-export error types from internal package

// PathEscapeError indicates a path resolved outside the sandbox root.
type PathEscapeError = errors.PathEscapeError

// InvalidArgumentsError indicates tool arguments failed schema validation.
type InvalidArgumentsError = errors.InvalidArgumentsError

// MalformedFrameError indicates a protocol frame could not be parsed.
type MalformedFrameError = errors.MalformedFrameError

// ToolCallTimeoutError indicates a tool call received no response in time.
type ToolCallTimeoutError = errors.ToolCallTimeoutError

// ConnectionLostError indicates the tool server died or its streams closed.
type ConnectionLostError = errors.ConnectionLostError

// HandlerExecutionError indicates a tool handler failed or panicked.
type HandlerExecutionError = errors.HandlerExecutionError

// ToolCallError is the client-side view of an error response from the server.
type ToolCallError = errors.ToolCallError

// ProcessError indicates the tool server process exited abnormally.
type ProcessError = errors.ProcessError

// ServerNotFoundError indicates the tool server binary was not found.
type ServerNotFoundError = errors.ServerNotFoundError

// BridgeError is the base interface for all fsbridge errors.
type BridgeError = errors.BridgeError

// Re-export sentinel errors from internal package.
var (
	// ErrConnectorNotStarted indicates the client has not been started.
	ErrConnectorNotStarted = errors.ErrConnectorNotStarted

	// ErrConnectorAlreadyStarted indicates Start was called twice.
	ErrConnectorAlreadyStarted = errors.ErrConnectorAlreadyStarted

	// ErrConnectorClosed indicates the client has been closed and cannot be reused.
	ErrConnectorClosed = errors.ErrConnectorClosed

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.ErrTransportNotConnected

	// ErrDuplicateTool indicates a tool name is already registered.
	ErrDuplicateTool = errors.ErrDuplicateTool

	// ErrUnknownTool indicates dispatch was requested for an unregistered tool.
	ErrUnknownTool = errors.ErrUnknownTool
)
