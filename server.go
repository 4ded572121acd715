package fsbridge

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/fsbridge/fsbridge-go/internal/fstool"
	"github.com/fsbridge/fsbridge-go/internal/registry"
	"github.com/fsbridge/fsbridge-go/internal/sandbox"
	"github.com/fsbridge/fsbridge-go/internal/server"
)

// Server serves the sandboxed filesystem tool set over a byte-stream pair.
//
// The builtin tools (read_file, list_directory, write_file) are registered
// at construction; AddTool may extend the set before Run. The tool set is
// fixed once Run starts.
type Server struct {
	log  *slog.Logger
	root *sandbox.Root
	reg  *registry.Registry
}

// ServerOption configures a Server during construction.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger *slog.Logger
}

// WithServerLogger sets the server's logger. The logger must never write to
// the protocol's output stream; point it at stderr or a file.
// If not set, logging is disabled (silent operation).
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// NewServer creates a server whose filesystem tools are confined to rootDir.
// The directory must exist; it is canonicalized once here and immutable
// afterwards.
func NewServer(rootDir string, opts ...ServerOption) (*Server, error) {
	options := &serverOptions{}
	for _, opt := range opts {
		opt(options)
	}

	log := options.logger
	if log == nil {
		log = NopLogger()
	}

	root, err := sandbox.New(rootDir)
	if err != nil {
		return nil, err
	}

	reg := registry.New(log)
	if err := fstool.RegisterAll(reg, root); err != nil {
		return nil, err
	}

	log.Info("Filesystem tool server initialized", "root", root.Path())

	return &Server{log: log, root: root, reg: reg}, nil
}

// Root returns the canonical sandbox root directory.
func (s *Server) Root() string {
	return s.root.Path()
}

// Sandbox is the path validator confining tool paths to the sandbox root.
type Sandbox = sandbox.Root

// Sandbox returns the server's path sandbox, for custom tools that take
// path-valued arguments. Every such argument must be validated through it
// before touching storage.
func (s *Server) Sandbox() *Sandbox {
	return s.root
}

// AddTool registers an additional tool. It fails if the name is already
// present. Call before Run; the tool listing is immutable per connection.
func (s *Server) AddTool(tool *Tool, handler ToolHandler) error {
	return s.reg.Register(tool, handler)
}

// Run serves requests from r and responses to w until r reaches end of
// stream or ctx is cancelled. In-flight handlers are drained before it
// returns.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	return server.New(s.log, s.reg, r, w).Run(ctx)
}

// ServeStdio runs the server on os.Stdin and os.Stdout. Stdout carries
// protocol frames exclusively; diagnostics belong on stderr.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Run(ctx, os.Stdin, os.Stdout)
}
