package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ironsheep/image-pipeline-mcp/internal/logging"
	"github.com/ironsheep/image-pipeline-mcp/internal/telemetry"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto settings keys. IMAGE_MCP_OUTPUT_JPEG_QUALITY sets output.jpeg_quality.
const EnvPrefix = "IMAGE_MCP_"

// Settings is the full server configuration.
type Settings struct {
	Log      logging.Config   `koanf:"log" yaml:"log"`
	Pipeline Pipeline         `koanf:"pipeline" yaml:"pipeline"`
	Output   Output           `koanf:"output" yaml:"output"`
	Metrics  Metrics          `koanf:"metrics" yaml:"metrics"`
	Tracing  telemetry.Config `koanf:"tracing" yaml:"tracing"`
}

// Pipeline controls executor behavior.
type Pipeline struct {
	// UnknownKeys is "skip" (log and continue) or "reject" (fail the run).
	UnknownKeys string `koanf:"unknown_keys" yaml:"unknown_keys" default:"skip" validate:"oneof=skip reject"`
}

// Output controls encoding of transformed images.
type Output struct {
	JPEGQuality int `koanf:"jpeg_quality" yaml:"jpeg_quality" default:"90" validate:"gte=1,lte=100"`
}

// Metrics controls the optional HTTP listener serving /metrics, /healthz and
// the transformation catalog. An empty Addr disables it.
type Metrics struct {
	Addr string `koanf:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns settings with every default applied.
func Default() *Settings {
	s := &Settings{}
	if err := defaults.Set(s); err != nil {
		panic(fmt.Sprintf("settings defaults: %v", err))
	}
	return s
}

// Load reads path (optional; a missing file is not an error), overlays
// IMAGE_MCP_* environment variables, fills defaults and validates the result.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load settings file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load settings env: %w", err)
	}

	s := &Settings{}
	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := defaults.Set(s); err != nil {
		return nil, fmt.Errorf("failed to set defaults: %w", err)
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks s against its struct tags.
func Validate(s *Settings) error {
	if err := validator.New().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid setting %s: failed %q check", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// envKey maps LOG_LEVEL to log.level. Only the first underscore separates the
// section; the rest belong to the field name.
func envKey(s string) string {
	name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(name, "_", ".", 1)
}
