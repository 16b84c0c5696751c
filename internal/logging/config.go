package logging

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// stderr is where console output goes. Tests swap it out.
var stderr zapcore.WriteSyncer = os.Stderr

// Config controls logger construction.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string `koanf:"level" yaml:"level" default:"info" validate:"oneof=debug info warn error"`

	// Format is "console" or "json" for the stderr output. The file sink
	// always writes JSON.
	Format string `koanf:"format" yaml:"format" default:"console" validate:"oneof=console json"`

	// File, when set, receives a copy of every entry with size-based rotation.
	File string `koanf:"file" yaml:"file"`

	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int `koanf:"max_size_mb" yaml:"max_size_mb" default:"50" validate:"gte=1"`

	// MaxBackups is the number of rotated files kept.
	MaxBackups int `koanf:"max_backups" yaml:"max_backups" default:"3" validate:"gte=0"`

	// MaxAgeDays is how long rotated files are kept; 0 keeps them forever.
	MaxAgeDays int `koanf:"max_age_days" yaml:"max_age_days" default:"14" validate:"gte=0"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 14,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Level == "" {
		c.Level = d.Level
	}
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = d.MaxSizeMB
	}
}

// TransportLevel converts Level to a zapcore.Level, defaulting to info.
func (c Config) TransportLevel() zapcore.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

func encoderConfig() zapcore.EncoderConfig {
	ec := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	return ec
}

func newEncoder(c Config) zapcore.Encoder {
	if strings.EqualFold(c.Format, "json") {
		return zapcore.NewJSONEncoder(encoderConfig())
	}
	ec := encoderConfig()
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func newFileEncoder(Config) zapcore.Encoder {
	return zapcore.NewJSONEncoder(encoderConfig())
}

func newFileWriter(c Config) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   true,
	})
}
