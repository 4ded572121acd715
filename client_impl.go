package fsbridge

import (
	"context"
	"sync"
	"time"

	"github.com/fsbridge/fsbridge-go/internal/config"
	"github.com/fsbridge/fsbridge-go/internal/connector"
	"github.com/fsbridge/fsbridge-go/internal/errors"
	"github.com/fsbridge/fsbridge-go/internal/subprocess"
)

// clientImpl wires options, transport, and connector behind the public
// Client interface.
type clientImpl struct {
	mu      sync.Mutex
	options *config.Options
	conn    *connector.Connector
	started bool
	closed  bool
}

// Compile-time check that *clientImpl implements the Client interface.
var _ Client = (*clientImpl)(nil)

func newClientImpl() Client {
	return &clientImpl{}
}

// Start establishes the connection to the tool server.
func (c *clientImpl) Start(ctx context.Context, opts ...Option) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrConnectorClosed
	}

	if c.started {
		return errors.ErrConnectorAlreadyStarted
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	transport := options.Transport
	if transport == nil {
		transport = subprocess.New(log, options)
	}

	conn := connector.New(log, transport)
	if err := conn.Start(ctx); err != nil {
		return err
	}

	c.options = options
	c.conn = conn
	c.started = true

	return nil
}

// Call invokes a named tool with the configured default timeout.
func (c *clientImpl) Call(ctx context.Context, tool string, args map[string]any) ([]Content, error) {
	conn, timeout, err := c.connection()
	if err != nil {
		return nil, err
	}

	return conn.Call(ctx, tool, args, timeout)
}

// CallWithTimeout invokes a named tool with an explicit timeout.
func (c *clientImpl) CallWithTimeout(
	ctx context.Context,
	tool string,
	args map[string]any,
	timeout time.Duration,
) ([]Content, error) {
	conn, _, err := c.connection()
	if err != nil {
		return nil, err
	}

	return conn.Call(ctx, tool, args, timeout)
}

// ListTools fetches the server's tool descriptor listing.
func (c *clientImpl) ListTools(ctx context.Context) ([]ToolInfo, error) {
	conn, timeout, err := c.connection()
	if err != nil {
		return nil, err
	}

	return conn.ListTools(ctx, timeout)
}

// Lost reports whether the connection is in the terminal Lost state.
func (c *clientImpl) Lost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.started && c.conn.Lost()
}

// Close terminates the server subprocess and fails all pending calls.
func (c *clientImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	if !c.started {
		return nil
	}

	return c.conn.Close()
}

// connection returns the live connector and effective call timeout.
func (c *clientImpl) connection() (*connector.Connector, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, 0, errors.ErrConnectorClosed
	}

	if !c.started {
		return nil, 0, errors.ErrConnectorNotStarted
	}

	return c.conn, c.options.CallTimeout(), nil
}
