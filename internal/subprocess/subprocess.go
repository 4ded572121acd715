// Package subprocess implements the default transport: a supervised tool
// server child process with framed JSON on its stdin/stdout pipes and a
// separate stderr diagnostic stream.
package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/fsbridge/fsbridge-go/internal/config"
	"github.com/fsbridge/fsbridge-go/internal/errors"
	"github.com/fsbridge/fsbridge-go/internal/wire"
)

const (
	// defaultCommand is the server binary searched in PATH when no explicit
	// command is configured.
	defaultCommand = "fsbridged"

	// maxStderrBufferSize caps the buffered diagnostic output retained for
	// error reporting. The stderr callback still receives every line; only
	// the buffer stops growing.
	maxStderrBufferSize = 10 * 1024 * 1024 // 10MB

	// stdinCloseWait bounds how long SendFrame waits for a blocked write
	// goroutine to exit after closing stdin on cancellation.
	stdinCloseWait = 1 * time.Second
)

// Transport spawns and supervises the tool server subprocess.
type Transport struct {
	log            *slog.Logger
	options        *config.Options
	stderrCallback func(string)

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
	enc    *wire.Encoder

	mu          sync.Mutex // Protects stdin state and closing flag
	closing     bool
	stdinClosed bool
}

// Compile-time verification that Transport implements config.Transport.
var _ config.Transport = (*Transport)(nil)

// New creates a subprocess transport. The server binary is located in
// Start(), preferring the explicit options.Command over a PATH search for
// the default binary name.
func New(log *slog.Logger, options *config.Options) *Transport {
	return &Transport{
		log:            log.With("component", "subprocess_transport"),
		options:        options,
		stderrCallback: options.Stderr,
	}
}

// Start locates the server binary and spawns it with stdin/stdout/stderr
// pipes. Returns *errors.ServerNotFoundError if the binary cannot be found.
func (t *Transport) Start(ctx context.Context) error {
	t.log.Info("Starting tool server subprocess")

	command, err := t.findServer()
	if err != nil {
		return err
	}

	args := make([]string, 0, len(t.options.Args)+2)
	if t.options.Root != "" {
		args = append(args, "--root", t.options.Root)
	}

	args = append(args, t.options.Args...)

	t.log.Debug("Built server command", "command", command, "args", args)

	//nolint:gosec // G204: spawning a configured server command is the point of this transport
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = buildEnvironment(t.options.Env)

	if t.options.Cwd != "" {
		cmd.Dir = t.options.Cwd
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.log.Error("Failed to create stdin pipe", "error", err)

		return &errors.ConnectionLostError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.log.Error("Failed to create stdout pipe", "error", err)

		return &errors.ConnectionLostError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.log.Error("Failed to create stderr pipe", "error", err)

		return &errors.ConnectionLostError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start tool server process", "error", err)

		return &errors.ConnectionLostError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.cmd = cmd
	t.stdin = stdin
	t.stdout = stdout
	t.stderr = stderr
	t.enc = wire.NewEncoder(stdin)

	t.log.Info("Tool server subprocess started", "pid", cmd.Process.Pid)

	return nil
}

// findServer resolves the server executable path.
func (t *Transport) findServer() (string, error) {
	if t.options.Command != "" {
		if strings.ContainsRune(t.options.Command, os.PathSeparator) {
			if _, err := os.Stat(t.options.Command); err != nil {
				return "", &errors.ServerNotFoundError{SearchedPaths: []string{t.options.Command}}
			}

			return t.options.Command, nil
		}

		path, err := exec.LookPath(t.options.Command)
		if err != nil {
			return "", &errors.ServerNotFoundError{SearchedPaths: []string{t.options.Command, "$PATH"}}
		}

		return path, nil
	}

	path, err := exec.LookPath(defaultCommand)
	if err != nil {
		return "", &errors.ServerNotFoundError{SearchedPaths: []string{defaultCommand, "$PATH"}}
	}

	return path, nil
}

// ReadFrames decodes response frames from the server's stdout.
//
// A goroutine reads line-framed JSON until the stream closes. The stderr
// diagnostic stream is consumed concurrently: every line goes to the
// configured callback and a capped buffer retained for ProcessError
// reporting. A malformed frame on stdout is fatal here - the error is
// forwarded and reading stops, because a desynced data stream cannot be
// trusted again.
//
// Both channels close when the goroutine exits. After the stream closes, the
// process exit status is collected; an abnormal exit during normal operation
// is reported as *errors.ProcessError carrying the buffered stderr.
func (t *Transport) ReadFrames(ctx context.Context) (<-chan wire.Frame, <-chan error) {
	frames := make(chan wire.Frame)
	errs := make(chan error, 1)

	var stderrWg sync.WaitGroup

	var stderrMu sync.Mutex

	var stderrBuffer strings.Builder

	stderrWg.Go(func() {
		scanner := bufio.NewScanner(t.stderr)
		for scanner.Scan() {
			line := scanner.Text()

			stderrMu.Lock()

			if stderrBuffer.Len() < maxStderrBufferSize {
				if stderrBuffer.Len() > 0 {
					stderrBuffer.WriteString("\n")
				}

				stderrBuffer.WriteString(line)
			}

			stderrMu.Unlock()

			if t.stderrCallback != nil {
				t.stderrCallback(line)
			}
		}

		if err := scanner.Err(); err != nil {
			t.log.Debug("Stderr scanner error", "error", err)
		}
	})

	go func() {
		defer close(frames)
		defer close(errs)
		defer t.log.Debug("ReadFrames goroutine stopped")

		dec := wire.NewDecoder(t.stdout)

	readLoop:
		for {
			frame, err := dec.Next()
			if err != nil {
				if stderrors.Is(err, io.EOF) {
					break
				}

				// Includes MalformedFrameError: protocol desync is fatal to
				// the connection on the client side.
				t.log.Error("Frame decode failed", "error", err)

				errs <- err

				break
			}

			select {
			case frames <- frame:
			case <-ctx.Done():
				t.log.Debug("Context cancelled during frame delivery", "error", ctx.Err())

				errs <- ctx.Err()

				break readLoop
			}
		}

		// Collect stderr before reaping the process.
		stderrWg.Wait()

		t.log.Debug("Waiting for tool server process to exit")

		if err := t.cmd.Wait(); err != nil {
			t.mu.Lock()
			isClosing := t.closing
			t.mu.Unlock()

			if isClosing {
				t.log.Debug("Tool server terminated during shutdown")

				return
			}

			stderrMu.Lock()
			stderrOutput := stderrBuffer.String()
			stderrMu.Unlock()

			exitCode := 0
			if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
				exitCode = exitErr.ExitCode()
			}

			t.log.Error("Tool server exited with error", "exit_code", exitCode, "stderr", stderrOutput)

			errs <- &errors.ProcessError{
				ExitCode: exitCode,
				Stderr:   stderrOutput,
				Err:      err,
			}
		} else {
			t.log.Info("Tool server exited cleanly")
		}
	}()

	return frames, errs
}

// SendFrame writes one frame to the server's stdin.
//
// Safe for concurrent use; the encoder serializes writes. If the context is
// cancelled during a blocked write, stdin is closed to unblock it and
// subsequent sends fail with errors.ErrStdinClosed.
func (t *Transport) SendFrame(ctx context.Context, frame wire.Frame) error {
	t.mu.Lock()

	if t.stdin == nil {
		t.mu.Unlock()

		return errors.ErrTransportNotConnected
	}

	if t.stdinClosed {
		t.mu.Unlock()

		return errors.ErrStdinClosed
	}

	t.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Write in a goroutine so cancellation can interrupt a blocked pipe
	// write by closing stdin (safe since Go 1.9).
	done := make(chan error, 1)

	go func() {
		done <- t.enc.Encode(frame)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.log.Error("Failed to write frame", "error", err)

			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil

	case <-ctx.Done():
		t.log.Debug("Context cancelled during write, closing stdin")

		t.mu.Lock()

		if t.stdin != nil {
			_ = t.stdin.Close()
			t.stdinClosed = true
		}

		t.mu.Unlock()

		select {
		case <-done:
		case <-time.After(stdinCloseWait):
			t.log.Warn("Write goroutine did not exit after stdin close, potential leak")
		}

		return ctx.Err()
	}
}

// IsReady reports whether the server process is running and stdin is open.
func (t *Transport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && t.cmd.Process != nil && t.stdin != nil && !t.stdinClosed
}

// Close terminates the server process. Safe to call multiple times or on an
// already-dead process.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closing = true
	t.stdinClosed = true

	if t.cmd != nil && t.cmd.Process != nil {
		t.log.Debug("Killing tool server process", "pid", t.cmd.Process.Pid)

		if err := t.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("kill tool server (pid %d): %w", t.cmd.Process.Pid, err)
		}
	}

	return nil
}

// buildEnvironment merges extra variables over the inherited environment.
func buildEnvironment(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}

	return env
}
