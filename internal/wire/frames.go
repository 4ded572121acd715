// Package wire defines the framed message protocol between the client
// connector and the tool server.
//
// Messages are exchanged as newline-delimited JSON objects on an otherwise
// unstructured byte stream. Framing is mandatory: the streams carry nothing
// else, so any ambiguity in message boundaries silently corrupts every
// subsequent read. JSON string escaping guarantees a marshalled frame never
// contains a literal newline, which makes the line boundary unambiguous.
package wire

// Frame type discriminators.
const (
	TypeRequest  = "request"
	TypeResponse = "response"
)

// Request methods.
const (
	// MethodListTools requests the server's tool descriptor listing.
	MethodListTools = "tools/list"

	// MethodCallTool invokes a named tool with arguments.
	MethodCallTool = "tools/call"
)

// Error codes carried in error responses.
const (
	CodePathEscape       = "path_escape"
	CodeInvalidArguments = "invalid_arguments"
	CodeUnknownTool      = "unknown_tool"
	CodeUnknownMethod    = "unknown_method"
	CodeHandlerFailed    = "handler_failed"
)

// Frame is implemented by the message types that may appear on the stream.
type Frame interface {
	frame()
}

// Request asks the server to perform one operation. ID is the correlation
// token the matching Response must carry; ids are never reused while a
// request with that id is still in flight on the same connection.
type Request struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Method string         `json:"method"`
	Tool   string         `json:"tool,omitempty"`
	Args   map[string]any `json:"args,omitempty"`
}

func (*Request) frame() {}

// Response carries the outcome of one Request. Exactly one of Result and
// Error is set.
type Response struct {
	Type   string  `json:"type"`
	ID     string  `json:"id"`
	Result *Result `json:"result,omitempty"`
	Error  *Error  `json:"error,omitempty"`
}

func (*Response) frame() {}

// Result is a successful outcome: an ordered sequence of content chunks for
// tools/call, or a descriptor listing for tools/list.
type Result struct {
	Content []Content  `json:"content,omitempty"`
	Tools   []ToolInfo `json:"tools,omitempty"`
}

// Content is one typed chunk of a result payload.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Error is a structured failure scoped to a single request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToolInfo advertises one callable tool. The listing is produced once at
// connection start and is immutable for the connection's lifetime.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}
