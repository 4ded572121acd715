package errors

import (
	"errors"
	"fmt"
	"time"
)

// BridgeError is the base interface for all fsbridge errors.
type BridgeError interface {
	error
	IsBridgeError() bool
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*PathEscapeError)(nil)
	_ BridgeError = (*InvalidArgumentsError)(nil)
	_ BridgeError = (*MalformedFrameError)(nil)
	_ BridgeError = (*ToolCallTimeoutError)(nil)
	_ BridgeError = (*ConnectionLostError)(nil)
	_ BridgeError = (*HandlerExecutionError)(nil)
	_ BridgeError = (*ToolCallError)(nil)
	_ BridgeError = (*ProcessError)(nil)
	_ BridgeError = (*ServerNotFoundError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrConnectorNotStarted indicates the connector has not been started.
	ErrConnectorNotStarted = errors.New("connector not started")

	// ErrConnectorAlreadyStarted indicates Start was called twice.
	ErrConnectorAlreadyStarted = errors.New("connector already started")

	// ErrConnectorClosed indicates the connector has been closed and cannot be
	// reused. Connectors are single-use; create a new one to reconnect.
	ErrConnectorClosed = errors.New("connector closed: connectors are single-use, create a new one")

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrStdinClosed indicates the server's stdin was closed, typically due to
	// context cancellation during a blocked write.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrDuplicateTool indicates a tool name is already registered.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrUnknownTool indicates dispatch was requested for an unregistered tool
	// name. Dispatch fails closed on unknown names.
	ErrUnknownTool = errors.New("unknown tool")
)

// PathEscapeError indicates a path resolved outside the sandbox root.
// These requests are rejected before any filesystem access and must never be
// retried with the same path.
type PathEscapeError struct {
	Path string
	Root string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("access denied: %s resolves outside sandbox root %s", e.Path, e.Root)
}

// IsBridgeError implements BridgeError.
func (e *PathEscapeError) IsBridgeError() bool { return true }

// InvalidArgumentsError indicates tool arguments failed schema validation.
// The tool handler is never invoked when this error is returned.
type InvalidArgumentsError struct {
	Tool string
	Err  error
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %v", e.Tool, e.Err)
}

func (e *InvalidArgumentsError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *InvalidArgumentsError) IsBridgeError() bool { return true }

// MalformedFrameError indicates a protocol frame could not be parsed.
// On the client side this is fatal to the connection; the stream can only be
// trusted again after closing and recreating it. The raw line that failed to
// parse is preserved for diagnostics.
type MalformedFrameError struct {
	RawData string
	Err     error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed protocol frame: %v", e.Err)
}

func (e *MalformedFrameError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *MalformedFrameError) IsBridgeError() bool { return true }

// ToolCallTimeoutError indicates no response arrived within the call timeout.
// The pending entry is removed; the server may still complete the handler, in
// which case its late response is discarded. Retrying is the caller's policy
// decision.
type ToolCallTimeoutError struct {
	Tool    string
	Timeout time.Duration
}

func (e *ToolCallTimeoutError) Error() string {
	return fmt.Sprintf("tool call %s timed out after %s", e.Tool, e.Timeout)
}

// IsBridgeError implements BridgeError.
func (e *ToolCallTimeoutError) IsBridgeError() bool { return true }

// ConnectionLostError indicates the server subprocess died or its streams
// closed. All pending calls on the connection fail with this error, and
// subsequent calls fail immediately. Callers must create a new connection;
// the connector never restarts the subprocess on its own.
type ConnectionLostError struct {
	Err error
}

func (e *ConnectionLostError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection to tool server lost: %v", e.Err)
	}

	return "connection to tool server lost"
}

func (e *ConnectionLostError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ConnectionLostError) IsBridgeError() bool { return true }

// HandlerExecutionError indicates a tool handler returned an error or
// panicked. The server converts it to an error response correlated to the
// request; the connection stays alive.
type HandlerExecutionError struct {
	Tool string
	Err  error
}

func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *HandlerExecutionError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *HandlerExecutionError) IsBridgeError() bool { return true }

// ToolCallError is the client-side view of an error response from the
// server. Code carries the wire error code (for example "path_escape" or
// "invalid_arguments") so the agent can reason about the failure.
type ToolCallError struct {
	Tool    string
	Code    string
	Message string
}

func (e *ToolCallError) Error() string {
	return fmt.Sprintf("tool %s failed (%s): %s", e.Tool, e.Code, e.Message)
}

// IsBridgeError implements BridgeError.
func (e *ToolCallError) IsBridgeError() bool { return true }

// ProcessError indicates the tool server process exited abnormally.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool server process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("tool server process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ProcessError) IsBridgeError() bool { return true }

// ServerNotFoundError indicates the tool server binary was not found.
type ServerNotFoundError struct {
	SearchedPaths []string
}

func (e *ServerNotFoundError) Error() string {
	return fmt.Sprintf("tool server binary not found in: %v", e.SearchedPaths)
}

// IsBridgeError implements BridgeError.
func (e *ServerNotFoundError) IsBridgeError() bool { return true }
