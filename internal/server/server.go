// Package server implements the tool server's read-dispatch-write loop.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/fsbridge/fsbridge-go/internal/errors"
	"github.com/fsbridge/fsbridge-go/internal/mcputil"
	"github.com/fsbridge/fsbridge-go/internal/registry"
	"github.com/fsbridge/fsbridge-go/internal/wire"
)

// Server drives the request/response loop for one connection.
//
// Each request is dispatched on its own goroutine so a slow tool call never
// blocks decoding of subsequent requests; all responses funnel through a
// single Encoder whose internal lock guarantees frame atomicity. Diagnostic
// output goes to the slog logger only, never to the data stream: a log line
// on the data channel is a fatal protocol violation the client observes as a
// malformed frame.
type Server struct {
	log *slog.Logger
	reg *registry.Registry
	dec *wire.Decoder
	enc *wire.Encoder
}

// New creates a server reading requests from r and writing responses to w.
func New(log *slog.Logger, reg *registry.Registry, r io.Reader, w io.Writer) *Server {
	return &Server{
		log: log.With("component", "server"),
		reg: reg,
		dec: wire.NewDecoder(r),
		enc: wire.NewEncoder(w),
	}
}

// Run processes requests until the input stream closes or ctx is cancelled,
// then drains in-flight handlers before returning.
//
// A malformed inbound frame is logged and skipped: line framing recovers at
// the next delimiter, and dropping one request is strictly better than
// tearing down every concurrent caller. Handler errors become error
// responses correlated to the request id; they never terminate the loop.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("Server loop started", "tools", s.reg.Len())

	handlers := new(errgroup.Group)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Server loop cancelled")

			_ = handlers.Wait()

			return ctx.Err()
		default:
		}

		frame, err := s.dec.Next()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				break
			}

			if mfe, ok := stderrors.AsType[*errors.MalformedFrameError](err); ok {
				s.log.Warn("Skipping malformed frame", "error", mfe.Err, "raw", mfe.RawData)

				continue
			}

			s.log.Error("Read failed, stopping server loop", "error", err)

			_ = handlers.Wait()

			return fmt.Errorf("read request: %w", err)
		}

		req, ok := frame.(*wire.Request)
		if !ok {
			s.log.Warn("Ignoring non-request frame on input stream")

			continue
		}

		handlers.Go(func() error {
			s.handle(ctx, req)

			return nil
		})
	}

	s.log.Info("Input stream closed, draining in-flight requests")

	_ = handlers.Wait()

	s.log.Info("Server loop stopped")

	return nil
}

// handle executes one request and writes its response.
func (s *Server) handle(ctx context.Context, req *wire.Request) {
	switch req.Method {
	case wire.MethodListTools:
		s.log.Debug("Listing tools", "request_id", req.ID)
		s.writeResult(req.ID, &wire.Result{Tools: s.reg.List()})

	case wire.MethodCallTool:
		s.log.Debug("Dispatching tool call", "request_id", req.ID, "tool", req.Tool)

		result, err := s.reg.Dispatch(ctx, req.Tool, req.Args)
		if err != nil {
			s.log.Warn("Tool call failed", "request_id", req.ID, "tool", req.Tool, "error", err)
			s.writeError(req.ID, wireError(err))

			return
		}

		if result != nil && result.IsError {
			content := mcputil.WireContent(result)

			message := "tool reported an error"
			if len(content) > 0 {
				message = content[0].Text
			}

			s.writeError(req.ID, &wire.Error{Code: wire.CodeHandlerFailed, Message: message})

			return
		}

		s.writeResult(req.ID, &wire.Result{Content: mcputil.WireContent(result)})

	default:
		s.log.Warn("Unknown request method", "request_id", req.ID, "method", req.Method)
		s.writeError(req.ID, &wire.Error{
			Code:    wire.CodeUnknownMethod,
			Message: fmt.Sprintf("unknown method %q", req.Method),
		})
	}
}

// writeResult sends a success response.
func (s *Server) writeResult(id string, result *wire.Result) {
	resp := &wire.Response{Type: wire.TypeResponse, ID: id, Result: result}
	if err := s.enc.Encode(resp); err != nil {
		s.log.Error("Failed to write response", "request_id", id, "error", err)
	}
}

// writeError sends an error response.
func (s *Server) writeError(id string, werr *wire.Error) {
	resp := &wire.Response{Type: wire.TypeResponse, ID: id, Error: werr}
	if err := s.enc.Encode(resp); err != nil {
		s.log.Error("Failed to write error response", "request_id", id, "error", err)
	}
}

// wireError maps the error taxonomy onto wire error codes so the agent can
// distinguish a sandbox rejection from a caller bug or a tool failure.
func wireError(err error) *wire.Error {
	switch {
	case isType[*errors.PathEscapeError](err):
		return &wire.Error{Code: wire.CodePathEscape, Message: err.Error()}

	case isType[*errors.InvalidArgumentsError](err):
		return &wire.Error{Code: wire.CodeInvalidArguments, Message: err.Error()}

	case stderrors.Is(err, errors.ErrUnknownTool):
		return &wire.Error{Code: wire.CodeUnknownTool, Message: err.Error()}

	default:
		return &wire.Error{Code: wire.CodeHandlerFailed, Message: err.Error()}
	}
}

// isType reports whether err's chain contains an error of type T.
func isType[T error](err error) bool {
	_, ok := stderrors.AsType[T](err)

	return ok
}
