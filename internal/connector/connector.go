// Package connector manages the client side of a tool server connection:
// request correlation, timeouts, and loss detection.
package connector

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fsbridge/fsbridge-go/internal/config"
	"github.com/fsbridge/fsbridge-go/internal/errors"
	"github.com/fsbridge/fsbridge-go/internal/wire"
)

// Connector owns one connection to the tool server.
//
// Any number of goroutines may issue calls concurrently; each registers a
// pending entry keyed by a fresh ULID correlation id and suspends on its own
// buffered channel. A single background reader demultiplexes inbound
// responses by id, so responses may resolve in any order relative to request
// issuance.
//
// When the transport reports an error or its streams close, the connector
// enters a terminal Lost state: every pending call and every subsequent call
// fails with *errors.ConnectionLostError. Recovery means creating a new
// connector; there is no implicit restart.
type Connector struct {
	log       *slog.Logger
	transport config.Transport

	pendingMu sync.Mutex
	pending   map[string]chan *wire.Response

	errMu    sync.RWMutex
	fatalErr error

	closeOnce sync.Once
	closed    bool // set by Close, distinguishes shutdown from loss
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates a connector over transport. Call Start before issuing calls.
func New(log *slog.Logger, transport config.Transport) *Connector {
	return &Connector{
		log:       log.With("component", "connector"),
		transport: transport,
		pending:   make(map[string]chan *wire.Response, 10),
		done:      make(chan struct{}),
	}
}

// Start connects the transport and spawns the background reader.
func (c *Connector) Start(ctx context.Context) error {
	c.log.Debug("Starting connector")

	if err := c.transport.Start(ctx); err != nil {
		return err
	}

	frames, errs := c.transport.ReadFrames(ctx)

	c.wg.Add(1)

	go c.readLoop(ctx, frames, errs)

	c.log.Info("Connector started")

	return nil
}

// readLoop demultiplexes inbound responses until the transport stops.
func (c *Connector) readLoop(ctx context.Context, frames <-chan wire.Frame, errs <-chan error) {
	defer c.wg.Done()
	defer c.log.Debug("Connector read loop stopped")

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				c.log.Debug("Frame channel closed")
				c.markLost(stderrors.New("response stream closed"))

				return
			}

			c.handleFrame(frame)

		case err, ok := <-errs:
			if !ok {
				c.log.Debug("Error channel closed")
				c.markLost(stderrors.New("response stream closed"))

				return
			}

			if err != nil {
				c.log.Warn("Transport error", "error", err)
				c.markLost(err)

				return
			}

		case <-c.done:
			return

		case <-ctx.Done():
			c.markLost(ctx.Err())

			return
		}
	}
}

// handleFrame resolves the pending call matching a response's id. Responses
// with no pending entry (late after a timeout, or duplicates) are discarded.
func (c *Connector) handleFrame(frame wire.Frame) {
	resp, ok := frame.(*wire.Response)
	if !ok {
		c.log.Warn("Ignoring non-response frame from server")

		return
	}

	c.pendingMu.Lock()

	ch, exists := c.pending[resp.ID]
	if exists {
		delete(c.pending, resp.ID)
	}

	c.pendingMu.Unlock()

	if !exists {
		c.log.Debug("Discarding response with no pending call", "request_id", resp.ID)

		return
	}

	// Channel is buffered and owned by exactly one waiter.
	ch <- resp
}

// Call invokes a named tool and returns the response's content chunks.
//
// The call fails with *errors.ToolCallTimeoutError when timeout elapses
// (removing the pending entry; a late server response is discarded), with
// *errors.ConnectionLostError when the connection is or becomes lost, and
// with *errors.ToolCallError when the server returns an error response.
func (c *Connector) Call(
	ctx context.Context,
	tool string,
	args map[string]any,
	timeout time.Duration,
) ([]wire.Content, error) {
	req := &wire.Request{
		Type:   wire.TypeRequest,
		ID:     c.generateRequestID(),
		Method: wire.MethodCallTool,
		Tool:   tool,
		Args:   args,
	}

	resp, err := c.roundTrip(ctx, req, timeout)
	if err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, &errors.ToolCallError{
			Tool:    tool,
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
		}
	}

	if resp.Result == nil {
		return nil, nil
	}

	return resp.Result.Content, nil
}

// ListTools fetches the server's tool descriptor listing.
func (c *Connector) ListTools(ctx context.Context, timeout time.Duration) ([]wire.ToolInfo, error) {
	req := &wire.Request{
		Type:   wire.TypeRequest,
		ID:     c.generateRequestID(),
		Method: wire.MethodListTools,
	}

	resp, err := c.roundTrip(ctx, req, timeout)
	if err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("list tools: %s", resp.Error.Message)
	}

	if resp.Result == nil {
		return nil, nil
	}

	return resp.Result.Tools, nil
}

// roundTrip registers a pending entry, writes the request, and waits for the
// matching response, the timeout, connection loss, or ctx cancellation.
func (c *Connector) roundTrip(
	ctx context.Context,
	req *wire.Request,
	timeout time.Duration,
) (*wire.Response, error) {
	if err := c.lostErr(); err != nil {
		return nil, err
	}

	responseChan := make(chan *wire.Response, 1)

	c.pendingMu.Lock()
	c.pending[req.ID] = responseChan
	c.pendingMu.Unlock()

	c.log.Debug("Sending request", "request_id", req.ID, "method", req.Method, "tool", req.Tool)

	if err := c.transport.SendFrame(ctx, req); err != nil {
		c.removePending(req.ID)

		if lostErr := c.lostErr(); lostErr != nil {
			return nil, lostErr
		}

		return nil, fmt.Errorf("send request: %w", err)
	}

	select {
	case resp := <-responseChan:
		c.log.Debug("Received response", "request_id", req.ID)

		return resp, nil

	case <-time.After(timeout):
		c.removePending(req.ID)
		c.log.Warn("Request timed out", "request_id", req.ID, "tool", req.Tool, "timeout", timeout)

		return nil, &errors.ToolCallTimeoutError{Tool: req.Tool, Timeout: timeout}

	case <-c.done:
		c.removePending(req.ID)

		if err := c.lostErr(); err != nil {
			return nil, err
		}

		return nil, errors.ErrConnectorClosed

	case <-ctx.Done():
		c.removePending(req.ID)
		c.log.Debug("Request cancelled", "request_id", req.ID)

		return nil, ctx.Err()
	}
}

// removePending deletes one pending entry.
func (c *Connector) removePending(id string) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// PendingCount returns the number of in-flight calls.
func (c *Connector) PendingCount() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	return len(c.pending)
}

// Lost reports whether the connection is in the terminal Lost state.
func (c *Connector) Lost() bool {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr != nil
}

// lostErr returns the error new calls must fail with, or nil while the
// connection is healthy.
func (c *Connector) lostErr() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	if c.fatalErr != nil {
		return &errors.ConnectionLostError{Err: c.fatalErr}
	}

	if c.closed {
		return errors.ErrConnectorClosed
	}

	select {
	case <-c.done:
		return errors.ErrConnectorClosed
	default:
		return nil
	}
}

// markLost records the first fatal error and wakes every waiter. Pending
// entries are cleaned up by the waiters themselves on the done signal, so
// the table is empty once all calls have returned.
func (c *Connector) markLost(err error) {
	c.errMu.Lock()

	if c.fatalErr == nil && !c.closed {
		c.fatalErr = err
	}

	c.errMu.Unlock()

	c.closeDone()
}

// closeDone closes the done channel exactly once.
func (c *Connector) closeDone() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Close shuts the connection down: pending calls fail, the transport is
// closed, and the reader goroutine is reaped. Safe to call multiple times.
func (c *Connector) Close() error {
	c.log.Debug("Closing connector")

	c.errMu.Lock()
	c.closed = true
	c.errMu.Unlock()

	c.closeDone()

	err := c.transport.Close()

	c.wg.Wait()
	c.log.Info("Connector closed")

	return err
}

// generateRequestID creates a unique correlation id using ULID.
func (c *Connector) generateRequestID() string {
	return ulid.Make().String()
}
