// Package logging wraps zap behind a small Logger interface.
//
// Console output always goes to stderr: stdout carries the MCP protocol and
// must never see a log line.
package logging
