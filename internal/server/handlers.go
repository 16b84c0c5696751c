package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/image-pipeline-mcp/internal/config"
	"github.com/ironsheep/image-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/image-pipeline-mcp/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_transform").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// invalidArgsError marks a tool call whose arguments could not be used at
// all. It maps to JSON-RPC -32602 instead of a tool failure.
type invalidArgsError struct {
	msg string
}

func (e *invalidArgsError) Error() string { return e.msg }

func invalidArgs(format string, args ...interface{}) error {
	return &invalidArgsError{msg: fmt.Sprintf(format, args...)}
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// Rejected pipeline parameters carry {kind, key, field, message} in data.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.toolErrorResponse(req.ID, params.Name, err)
	}
	s.log.Debug("tool complete", zap.String("tool", params.Name), zap.Duration("elapsed", time.Since(start)))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_transform":
		return s.handleImageTransform(ctx, args)
	case "image_transformations":
		return s.handleImageTransformations()
	case "image_validate":
		return s.handleImageValidate(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (s *Server) toolErrorResponse(id interface{}, tool string, err error) *MCPResponse {
	var argErr *invalidArgsError
	if errors.As(err, &argErr) {
		return s.errorResponse(id, -32602, "Invalid params", argErr.Error())
	}

	s.log.Warn("tool failed", zap.String("tool", tool), zap.Error(err))
	if data := failureData(err); data != nil {
		return s.errorResponse(id, -32000, "Tool execution failed", data)
	}
	return s.errorResponse(id, -32000, "Tool execution failed", err.Error())
}

// failureData describes a rejected configuration, or returns nil when err is
// not a configuration problem.
func failureData(err error) map[string]interface{} {
	var data map[string]interface{}

	var ve *config.ValidationError
	var unknown *pipeline.UnknownKeyError
	switch {
	case errors.As(err, &ve):
		data = map[string]interface{}{
			"kind":  ve.Kind.String(),
			"key":   ve.Key,
			"field": ve.Field,
		}
	case errors.As(err, &unknown):
		data = map[string]interface{}{
			"kind": "unknown key",
			"key":  unknown.Key,
			"step": unknown.Index,
		}
	default:
		return nil
	}

	var step *pipeline.StepError
	if errors.As(err, &step) {
		data["step"] = step.Index
	}
	data["message"] = err.Error()
	return data
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(args)) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return invalidArgs("invalid arguments: %v", err)
	}
	return nil
}

func requirePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return invalidArgs("path is required")
	}
	return nil
}

// parseConfig accepts the pipeline configuration either as a JSON object or
// as a string holding one.
func parseConfig(raw json.RawMessage) (config.Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return config.Value{}, invalidArgs("config is required")
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return config.Value{}, invalidArgs("invalid config: %v", err)
		}
		raw = []byte(text)
	}

	v, err := config.Parse(raw)
	if err != nil {
		return config.Value{}, invalidArgs("invalid config: %v", err)
	}
	return v, nil
}

// === Image Information ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Pipeline ===

type imageTransformArgs struct {
	Path         string          `json:"path"`
	Config       json.RawMessage `json:"config"`
	OutputPath   string          `json:"output_path"`
	OutputFormat string          `json:"output_format"`
	Quality      int             `json:"quality"`
}

// TransformResult describes an encoded pipeline result.
type TransformResult struct {
	*imaging.EncodedImage

	// RequestedFormat is the format asked for. EncodedImage.Format is what
	// was actually written and differs only for WEBP.
	RequestedFormat string   `json:"requested_format"`
	OriginalFormat  string   `json:"original_format"`
	OutputPath      string   `json:"output_path,omitempty"`
	Applied         []string `json:"applied"`
	Skipped         []string `json:"skipped,omitempty"`
	RunID           string   `json:"run_id"`
}

func (s *Server) handleImageTransform(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageTransformArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	if a.Quality < 0 || a.Quality > 100 {
		return nil, invalidArgs("quality must be between 1 and 100, got %d", a.Quality)
	}
	cfg, err := parseConfig(a.Config)
	if err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := s.executor.Run(ctx, img, cfg)
	if err != nil {
		return nil, err
	}

	format := outputFormat(a.OutputFormat, res)
	quality := a.Quality
	if quality == 0 {
		quality = s.quality
	}

	out := &TransformResult{
		RequestedFormat: format,
		OriginalFormat:  res.OriginalFormat,
		Applied:         res.Applied,
		Skipped:         res.Skipped,
		RunID:           res.RunID,
	}

	if a.OutputPath == "" {
		enc, err := imaging.EncodeBase64(res.Image, format, quality)
		if err != nil {
			return nil, err
		}
		out.EncodedImage = enc
		return out, nil
	}

	enc, err := writeImage(a.OutputPath, res.Image, format, quality)
	if err != nil {
		return nil, err
	}
	out.EncodedImage = enc
	out.OutputPath = a.OutputPath
	return out, nil
}

// outputFormat picks the explicit override, then the working format (set by
// a format step, or inherited from the source), then PNG.
func outputFormat(override string, res *pipeline.Result) string {
	if f := strings.TrimSpace(override); f != "" {
		return strings.ToUpper(f)
	}
	if res.Image.Format != "" {
		return res.Image.Format
	}
	return "PNG"
}

func writeImage(path string, r imaging.Raster, format string, quality int) (*imaging.EncodedImage, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	written, err := imaging.Encode(f, r, format, quality)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close output file: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output file: %w", err)
	}

	return &imaging.EncodedImage{
		Width:     r.Width(),
		Height:    r.Height(),
		Mode:      string(r.Mode),
		Format:    written,
		MimeType:  imaging.MimeType(written),
		SizeBytes: int(stat.Size()),
	}, nil
}

func (s *Server) handleImageTransformations() (interface{}, error) {
	reg := s.executor.Registry()
	return map[string]interface{}{
		"count":           reg.Len(),
		"transformations": reg.Catalog(),
	}, nil
}

type imageValidateArgs struct {
	Path   string          `json:"path"`
	Config json.RawMessage `json:"config"`
}

// ValidateResult reports whether a configuration ran cleanly.
type ValidateResult struct {
	Valid   bool                   `json:"valid"`
	Error   map[string]interface{} `json:"error,omitempty"`
	Width   int                    `json:"width,omitempty"`
	Height  int                    `json:"height,omitempty"`
	Mode    string                 `json:"mode,omitempty"`
	Format  string                 `json:"format,omitempty"`
	Applied []string               `json:"applied,omitempty"`
	Skipped []string               `json:"skipped,omitempty"`
}

func (s *Server) handleImageValidate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageValidateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	cfg, err := parseConfig(a.Config)
	if err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	res, err := s.executor.Run(ctx, img, cfg)
	if err != nil {
		if data := failureData(err); data != nil {
			return &ValidateResult{Valid: false, Error: data}, nil
		}
		return nil, err
	}

	return &ValidateResult{
		Valid:   true,
		Width:   res.Image.Width(),
		Height:  res.Image.Height(),
		Mode:    string(res.Image.Mode),
		Format:  res.Image.Format,
		Applied: res.Applied,
		Skipped: res.Skipped,
	}, nil
}
