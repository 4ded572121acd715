// Package fsbridge exposes sandboxed filesystem tools to an AI agent over a
// framed protocol to a supervised subprocess.
//
// The server side (cmd/fsbridged or an embedded Server) registers a fixed
// tool set - read_file, list_directory, write_file - whose every path is
// validated against a sandbox root before any filesystem access. The client
// side spawns the server, correlates concurrent requests and responses by
// id, and exports the tools as framework-neutral bindings an agent loop can
// invoke directly.
//
// # Client Usage
//
//	client := fsbridge.NewClient()
//	defer client.Close()
//
//	err := client.Start(ctx,
//	    fsbridge.WithRoot("/data"),
//	    fsbridge.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	content, err := client.Call(ctx, "read_file", map[string]any{"path": "report.txt"})
//
// # Exporting Tools to an Agent Framework
//
//	bindings, err := fsbridge.ExportTools(ctx, client)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, b := range bindings {
//	    // hand b.Name, b.Description, b.Params to the agent's tool schema,
//	    // and b.Invoke as the callable.
//	}
//
// # Serving
//
//	srv, err := fsbridge.NewServer("/data", fsbridge.WithServerLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = srv.Run(ctx, os.Stdin, os.Stdout)
//
// The server writes protocol frames to stdout only; all logging goes to
// stderr. Mixing the two corrupts the protocol, which the client reports as
// a MalformedFrameError and treats as fatal to the connection.
//
// # Error Handling
//
// The package provides typed errors for each failure mode:
//
//	content, err := client.Call(ctx, "read_file", args)
//	if err != nil {
//	    if timeoutErr, ok := errors.AsType[*fsbridge.ToolCallTimeoutError](err); ok {
//	        // retry is the caller's policy decision
//	        _ = timeoutErr
//	    }
//	    if _, ok := errors.AsType[*fsbridge.ConnectionLostError](err); ok {
//	        // the connection is gone; create a new client to recover
//	    }
//	}
package fsbridge
