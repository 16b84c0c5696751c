package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var configProperty = map[string]interface{}{
	"type": []string{"object", "string"},
	"description": "Pipeline configuration: an object whose keys name transformations and whose values are their parameters, " +
		`applied in order. A JSON string holding the object is also accepted. Example: {"resize": {"width": 200}, "grayscale": null}`,
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and color mode. The decoded image is cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name: "image_transform",
			Description: "Run a transformation pipeline on an image. Returns the result as base64, or writes it to output_path. " +
				"The output format is output_format if given, else the format chosen by a 'format' step, else the source format. " +
				"WEBP output is written as PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty,
					"config": configProperty,
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to write instead of returning base64",
					},
					"output_format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"PNG", "JPEG", "GIF", "BMP", "TIFF", "WEBP"},
						"description": "Optional output format override",
					},
					"quality": map[string]interface{}{
						"type":        "integer",
						"description": "JPEG quality (1-100). Defaults to the server setting",
						"minimum":     1,
						"maximum":     100,
					},
				},
				"required": []string{"path", "config"},
			},
		},
		{
			Name:        "image_transformations",
			Description: "List every supported transformation key with its parameters, defaults and allowed values.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "image_validate",
			Description: "Check a pipeline configuration against an image without encoding the result. Reports the first rejected parameter, or the resulting dimensions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty,
					"config": configProperty,
				},
				"required": []string{"path", "config"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
