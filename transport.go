package fsbridge

import "github.com/fsbridge/fsbridge-go/internal/config"

// Transport defines the interface for tool server communication.
// Implement this to provide custom transports for testing, mocking,
// or alternative process supervision.
//
// The default implementation spawns the server as a subprocess. Custom
// transports can be injected via WithTransport.
type Transport = config.Transport
