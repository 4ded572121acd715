package fsbridge

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsbridge/fsbridge-go/internal/wire"
)

// pipeTransport runs a Server in-process and links it to the client over
// io.Pipe pairs, exercising the full protocol path without a subprocess.
type pipeTransport struct {
	srv *Server

	mu    sync.Mutex
	ready bool
	enc   *wire.Encoder

	toServer   *io.PipeWriter
	fromServer *io.PipeReader

	frames chan wire.Frame
	errs   chan error

	stopServer context.CancelFunc
	serverDone chan struct{}
}

func newPipeTransport(srv *Server) *pipeTransport {
	return &pipeTransport{
		srv:        srv,
		frames:     make(chan wire.Frame, 10),
		errs:       make(chan error, 1),
		serverDone: make(chan struct{}),
	}
}

func (p *pipeTransport) Start(_ context.Context) error {
	requestReader, requestWriter := io.Pipe()
	responseReader, responseWriter := io.Pipe()

	serverCtx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.enc = wire.NewEncoder(requestWriter)
	p.toServer = requestWriter
	p.fromServer = responseReader
	p.stopServer = cancel
	p.ready = true
	p.mu.Unlock()

	go func() {
		defer close(p.serverDone)
		defer responseWriter.Close()

		_ = p.srv.Run(serverCtx, requestReader, responseWriter)
	}()

	go func() {
		defer close(p.frames)
		defer close(p.errs)

		dec := wire.NewDecoder(responseReader)

		for {
			frame, err := dec.Next()
			if err != nil {
				if err != io.EOF {
					p.errs <- err
				}

				return
			}

			p.frames <- frame
		}
	}()

	return nil
}

func (p *pipeTransport) ReadFrames(_ context.Context) (<-chan wire.Frame, <-chan error) {
	return p.frames, p.errs
}

func (p *pipeTransport) SendFrame(_ context.Context, frame wire.Frame) error {
	p.mu.Lock()
	enc := p.enc
	ready := p.ready
	p.mu.Unlock()

	if !ready {
		return ErrTransportNotConnected
	}

	return enc.Encode(frame)
}

func (p *pipeTransport) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ready
}

func (p *pipeTransport) Close() error {
	p.mu.Lock()

	if !p.ready {
		p.mu.Unlock()

		return nil
	}

	p.ready = false
	toServer := p.toServer
	p.mu.Unlock()

	// Closing the request stream lets the server loop drain and stop.
	_ = toServer.Close()

	<-p.serverDone

	return nil
}

// crashServer tears the server side down abruptly, as if the subprocess
// died mid-connection.
func (p *pipeTransport) crashServer() {
	p.mu.Lock()
	stop := p.stopServer
	fromServer := p.fromServer
	p.mu.Unlock()

	stop()

	_ = fromServer.Close()
}

func startTestClient(t *testing.T) (Client, string, *pipeTransport) {
	t.Helper()

	dir := t.TempDir()

	srv, err := NewServer(dir)
	require.NoError(t, err)

	transport := newPipeTransport(srv)

	client := NewClient()
	require.NoError(t, client.Start(context.Background(), WithTransport(transport)))

	t.Cleanup(func() { _ = client.Close() })

	return client, srv.Root(), transport
}

func TestClient_ListTools(t *testing.T) {
	client, _, _ := startTestClient(t)

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 3)

	assert.Equal(t, "list_directory", tools[0].Name)
	assert.Equal(t, "read_file", tools[1].Name)
	assert.Equal(t, "write_file", tools[2].Name)

	for _, tool := range tools {
		assert.NotEmpty(t, tool.Description)
		assert.NotNil(t, tool.InputSchema)
	}
}

func TestClient_ReadWriteRoundTrip(t *testing.T) {
	client, root, _ := startTestClient(t)

	ctx := context.Background()

	content, err := client.Call(ctx, "write_file", map[string]any{
		"path":    "notes/today.md",
		"content": "# Agenda\n\nShip it.\n",
	})
	require.NoError(t, err)
	require.Len(t, content, 1)
	assert.Equal(t, "Successfully wrote 19 characters to today.md", content[0].Text)

	data, err := os.ReadFile(filepath.Join(root, "notes", "today.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Agenda\n\nShip it.\n", string(data))

	content, err = client.Call(ctx, "read_file", map[string]any{"path": "notes/today.md"})
	require.NoError(t, err)
	require.Len(t, content, 1)
	assert.Equal(t, "# Agenda\n\nShip it.\n", content[0].Text)
}

func TestClient_ListDirectory(t *testing.T) {
	client, root, _ := startTestClient(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	content, err := client.Call(context.Background(), "list_directory", map[string]any{"path": "."})
	require.NoError(t, err)
	require.Len(t, content, 2)
	assert.Equal(t, "a.txt", content[0].Text)
	assert.Equal(t, "sub", content[1].Text)
}

func TestClient_PathEscapeError(t *testing.T) {
	client, _, _ := startTestClient(t)

	_, err := client.Call(context.Background(), "read_file", map[string]any{"path": "../../etc/passwd"})

	var callErr *ToolCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "read_file", callErr.Tool)
	assert.Equal(t, "path_escape", callErr.Code)
}

func TestClient_InvalidArgumentsError(t *testing.T) {
	client, _, _ := startTestClient(t)

	_, err := client.Call(context.Background(), "read_file", map[string]any{})

	var callErr *ToolCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "invalid_arguments", callErr.Code)
}

func TestClient_UnknownToolError(t *testing.T) {
	client, _, _ := startTestClient(t)

	_, err := client.Call(context.Background(), "delete_everything", nil)

	var callErr *ToolCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "unknown_tool", callErr.Code)
}

func TestClient_ConcurrentCalls(t *testing.T) {
	client, root, _ := startTestClient(t)

	for i := range 5 {
		name := string(rune('a'+i)) + ".txt"
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(name), 0o644))
	}

	var wg sync.WaitGroup

	for i := range 5 {
		wg.Go(func() {
			name := string(rune('a'+i)) + ".txt"

			content, err := client.Call(context.Background(), "read_file", map[string]any{"path": name})
			assert.NoError(t, err)

			if assert.Len(t, content, 1) {
				assert.Equal(t, name, content[0].Text)
			}
		})
	}

	wg.Wait()
}

func TestClient_CallBeforeStart(t *testing.T) {
	client := NewClient()

	_, err := client.Call(context.Background(), "read_file", map[string]any{"path": "x"})
	require.ErrorIs(t, err, ErrConnectorNotStarted)

	_, err = client.ListTools(context.Background())
	require.ErrorIs(t, err, ErrConnectorNotStarted)

	assert.False(t, client.Lost())
}

func TestClient_DoubleStart(t *testing.T) {
	client, _, _ := startTestClient(t)

	err := client.Start(context.Background())
	require.ErrorIs(t, err, ErrConnectorAlreadyStarted)
}

func TestClient_UseAfterClose(t *testing.T) {
	client, _, _ := startTestClient(t)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err := client.Call(context.Background(), "read_file", map[string]any{"path": "x"})
	require.ErrorIs(t, err, ErrConnectorClosed)

	err = client.Start(context.Background())
	require.ErrorIs(t, err, ErrConnectorClosed)
}

func TestClient_ConnectionLost(t *testing.T) {
	client, _, transport := startTestClient(t)

	// Confirm the connection works, then kill the server side.
	_, err := client.ListTools(context.Background())
	require.NoError(t, err)

	transport.crashServer()

	require.Eventually(t, client.Lost, time.Second, time.Millisecond)

	_, err = client.Call(context.Background(), "read_file", map[string]any{"path": "x"})

	var lostErr *ConnectionLostError
	require.ErrorAs(t, err, &lostErr)
}

func TestClient_CallWithTimeout(t *testing.T) {
	client, root, _ := startTestClient(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("x"), 0o644))

	content, err := client.CallWithTimeout(
		context.Background(), "read_file", map[string]any{"path": "f.txt"}, 5*time.Second,
	)
	require.NoError(t, err)
	assert.Equal(t, "x", content[0].Text)
}

func TestClient_CustomToolOnServer(t *testing.T) {
	dir := t.TempDir()

	srv, err := NewServer(dir)
	require.NoError(t, err)

	tool := NewTool("word_count", "Count words in text.", SimpleSchema(map[string]string{"text": "string"}))
	handler := func(ctx context.Context, args map[string]any) (*CallToolResult, error) {
		text, _ := args["text"].(string)

		count := 0
		inWord := false

		for _, r := range text {
			if r == ' ' || r == '\n' || r == '\t' {
				inWord = false

				continue
			}

			if !inWord {
				count++
				inWord = true
			}
		}

		return TextResult(string(rune('0' + count))), nil
	}
	require.NoError(t, srv.AddTool(tool, handler))

	client := NewClient()
	require.NoError(t, client.Start(context.Background(), WithTransport(newPipeTransport(srv))))

	defer client.Close()

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 4)

	content, err := client.Call(context.Background(), "word_count", map[string]any{"text": "one two three"})
	require.NoError(t, err)
	assert.Equal(t, "3", content[0].Text)
}
