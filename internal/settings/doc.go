// Package settings loads server configuration from an optional YAML file and
// IMAGE_MCP_* environment variables, in that order of precedence (environment
// wins).
//
// Example file:
//
//	log:
//	  level: debug
//	  file: /var/log/image-pipeline-mcp.log
//	pipeline:
//	  unknown_keys: reject
//	output:
//	  jpeg_quality: 85
//	metrics:
//	  addr: 127.0.0.1:9464
//	tracing:
//	  exporter: otlp
//	  otlp_endpoint: localhost:4318
//	  otlp_insecure: true
package settings
