// Package server implements the MCP (Model Context Protocol) server for the
// image transformation pipeline.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_load: Load an image and get its metadata
//   - image_transform: Run a pipeline and return or write the encoded result
//   - image_transformations: List transformation keys and their parameters
//   - image_validate: Run a pipeline without encoding and report the outcome
//
// A pipeline configuration is a JSON object whose keys name transformations,
// applied in the order written:
//
//	{"thumbnail": {"size": [256, 256]}, "sharpness": 1.4, "format": "jpeg"}
//
// # Image Caching
//
// Decoded images are cached by path and reused across tool calls. Pipelines
// never modify a cached image.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32602 for unusable arguments (missing path, malformed config)
//   - code: -32000 for tool failures
//   - data: for a rejected transformation parameter, an object with kind, key,
//     field, step and message; otherwise the error string
//
// # HTTP Listener
//
// NewHTTPHandler serves /healthz, /metrics and /transformations for an
// optional side listener. It never carries MCP traffic.
package server
