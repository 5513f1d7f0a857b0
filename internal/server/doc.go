// Package server provides the HTTP API over the configuration store.
//
// The router is chi-based with request ID, zerolog request logging, panic
// recovery and CORS middleware. Every handler reads or writes through
// config.Manager; the server holds no state of its own.
//
// # API Endpoints
//
//   - GET /health: status, config path and write counters
//   - GET /config: full snapshot including live system diagnostics
//   - GET /config/{key}: a single value; 404 for unknown keys
//   - PUT /config/{key}: set a value from {"value": ...}; 400 on validation failure
//   - GET /client, POST /client: current client identity
//   - GET /client/history: every (name, version) seen
//   - GET /check/command?cmd=: whether a shell command line is blocked
//   - GET /check/path?path=: whether a path is within the allowed directories
//   - GET /event: Server-Sent Events stream of bus events
//   - /mcp: MCP streamable HTTP transport for the config tools
//
// # Errors
//
// Errors use a common envelope:
//
//	{"error": {"code": "INVALID_REQUEST", "message": "...", "details": {"key": "...", "reason": "out_of_range"}}}
//
// # Event Stream
//
// /event first sends a server.connected event, then one message per bus event
// in the form {"type": "config.updated", "properties": {...}}. A heartbeat
// comment is written every 30 seconds.
package server
