// Command fsbridged serves sandboxed filesystem tools over stdio.
//
// Stdout carries protocol frames exclusively; all logging goes to stderr.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	fsbridge "github.com/fsbridge/fsbridge-go"
)

func main() {
	if err := newApp().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cobra.Command {
	var (
		rootDir  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "fsbridged",
		Short: "Serve sandboxed filesystem tools over stdio",
		Long: `fsbridged exposes read_file, list_directory, and write_file to a client
process over newline-delimited JSON on stdin/stdout. Every path is confined
to the sandbox root directory.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootDir, logLevel)
		},
	}

	cmd.Flags().StringVar(&rootDir, "root", defaultRoot(), "sandbox root directory (env FSBRIDGE_ROOT)")
	cmd.Flags().StringVar(&logLevel, "log-level", defaultLogLevel(), "log level: debug, info, warn, error (env FSBRIDGE_LOG_LEVEL)")

	// Usage and errors must stay off the data channel.
	cmd.SetOut(os.Stderr)
	cmd.SetErr(os.Stderr)

	return cmd
}

func run(rootDir, logLevel string) error {
	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	srv, err := fsbridge.NewServer(rootDir, fsbridge.WithServerLogger(log))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ServeStdio(ctx)
}

func defaultRoot() string {
	if root := os.Getenv("FSBRIDGE_ROOT"); root != "" {
		return root
	}

	return "."
}

func defaultLogLevel() string {
	if level := os.Getenv("FSBRIDGE_LOG_LEVEL"); level != "" {
		return level
	}

	return "error"
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
