package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathEscapeError(t *testing.T) {
	err := &PathEscapeError{Path: "../../etc/passwd", Root: "/data"}

	assert.Contains(t, err.Error(), "access denied")
	assert.Contains(t, err.Error(), "../../etc/passwd")
	assert.Contains(t, err.Error(), "/data")
	assert.True(t, err.IsBridgeError())
}

func TestBridgeErrorDetection(t *testing.T) {
	// Wrapped bridge errors stay detectable through the marker interface.
	wrapped := fmt.Errorf("validate: %w", &PathEscapeError{Path: "x", Root: "/data"})

	var bridgeErr BridgeError
	require.True(t, stderrors.As(wrapped, &bridgeErr))

	plain := fmt.Errorf("plain failure")
	assert.False(t, stderrors.As(plain, &bridgeErr))
}

func TestInvalidArgumentsError_Unwrap(t *testing.T) {
	cause := stderrors.New("missing property \"path\"")
	err := &InvalidArgumentsError{Tool: "read_file", Err: cause}

	assert.Contains(t, err.Error(), "read_file")
	require.ErrorIs(t, err, cause)
}

func TestMalformedFrameError_PreservesRawData(t *testing.T) {
	err := &MalformedFrameError{RawData: "not json", Err: stderrors.New("invalid character")}

	assert.Equal(t, "not json", err.RawData)
	assert.Contains(t, err.Error(), "malformed protocol frame")
}

func TestToolCallTimeoutError(t *testing.T) {
	err := &ToolCallTimeoutError{Tool: "read_file", Timeout: 30 * time.Second}

	assert.Contains(t, err.Error(), "read_file")
	assert.Contains(t, err.Error(), "30s")
}

func TestConnectionLostError(t *testing.T) {
	cause := stderrors.New("process exited")
	err := &ConnectionLostError{Err: cause}

	assert.Contains(t, err.Error(), "connection to tool server lost")
	require.ErrorIs(t, err, cause)

	bare := &ConnectionLostError{}
	assert.Equal(t, "connection to tool server lost", bare.Error())
}

func TestToolCallError(t *testing.T) {
	err := &ToolCallError{Tool: "write_file", Code: "path_escape", Message: "access denied"}

	assert.Contains(t, err.Error(), "write_file")
	assert.Contains(t, err.Error(), "path_escape")
	assert.Contains(t, err.Error(), "access denied")
}

func TestProcessError(t *testing.T) {
	withStderr := &ProcessError{ExitCode: 2, Stderr: "panic: boom"}
	assert.Contains(t, withStderr.Error(), "exit 2")
	assert.Contains(t, withStderr.Error(), "panic: boom")

	cause := stderrors.New("signal: killed")
	withCause := &ProcessError{ExitCode: -1, Err: cause}
	require.ErrorIs(t, withCause, cause)
}

func TestServerNotFoundError(t *testing.T) {
	err := &ServerNotFoundError{SearchedPaths: []string{"fsbridged", "/usr/local/bin/fsbridged"}}

	assert.Contains(t, err.Error(), "fsbridged")
}
