package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/image-pipeline-mcp/internal/logging"
	"github.com/ironsheep/image-pipeline-mcp/internal/pipeline"
	"github.com/ironsheep/image-pipeline-mcp/internal/server"
	"github.com/ironsheep/image-pipeline-mcp/internal/settings"
	"github.com/ironsheep/image-pipeline-mcp/internal/telemetry"
	"github.com/ironsheep/image-pipeline-mcp/internal/transform"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := os.Getenv("IMAGE_MCP_CONFIG")

	// Handle --version, --help and --config
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--version" || arg == "-v" || arg == "version":
			fmt.Printf("image-pipeline-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case arg == "--help" || arg == "-h" || arg == "help":
			printHelp()
			return
		case arg == "--config" || arg == "-c":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a path")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		default:
			fmt.Fprintf(os.Stderr, "unknown argument: %s\n", arg)
			os.Exit(2)
		}
	}

	cfg, err := settings.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "image-pipeline-mcp: %v\n", err)
		os.Exit(1)
	}

	log := logging.NewLogger(cfg.Log)
	defer func() { _ = log.Sync() }()
	log.Debug("starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Fatal("tracing setup failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	registry, err := transform.Default()
	if err != nil {
		log.Fatal("transformation registry", zap.Error(err))
	}

	policy, err := pipeline.ParsePolicy(cfg.Pipeline.UnknownKeys)
	if err != nil {
		log.Fatal("invalid pipeline settings", zap.Error(err))
	}

	var metrics *pipeline.Metrics
	if cfg.Metrics.Addr != "" {
		metrics = pipeline.NewMetrics()
	}

	executor := pipeline.NewExecutor(registry,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(metrics),
		pipeline.WithUnknownKeys(policy),
	)

	if cfg.Metrics.Addr != "" {
		httpServer := server.NewHTTPServer(cfg.Metrics.Addr, server.NewHTTPHandler(registry, metrics, log.Named("http")))
		go func() {
			log.Info("http listener started", zap.String("addr", cfg.Metrics.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http listener failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Warn("http shutdown failed", zap.Error(err))
			}
		}()
	}

	srv := server.New(
		server.WithExecutor(executor),
		server.WithLogger(log.Named("mcp")),
		server.WithJPEGQuality(cfg.Output.JPEGQuality),
		server.WithVersion(Version),
	)

	log.Info("serving MCP on stdio",
		zap.Int("transformations", registry.Len()),
		zap.String("unknown_keys", policy.String()),
	)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("image-pipeline-mcp - MCP server for configuration-driven image transformation")
	fmt.Println()
	fmt.Println("Usage: image-pipeline-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config, -c PATH  YAML settings file (also IMAGE_MCP_CONFIG)")
	fmt.Println("  --version, -v      Print version information")
	fmt.Println("  --help, -h         Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (override the settings file):")
	fmt.Println("  IMAGE_MCP_LOG_LEVEL=debug               Log level: debug, info, warn, error")
	fmt.Println("  IMAGE_MCP_LOG_FORMAT=json               Log format: console, json")
	fmt.Println("  IMAGE_MCP_LOG_FILE=/path/server.log     Also log to a rotating file")
	fmt.Println("  IMAGE_MCP_PIPELINE_UNKNOWN_KEYS=reject  Fail on unknown transformation keys")
	fmt.Println("  IMAGE_MCP_OUTPUT_JPEG_QUALITY=85        Default JPEG quality")
	fmt.Println("  IMAGE_MCP_METRICS_ADDR=127.0.0.1:9464   Serve /metrics, /healthz, /transformations")
	fmt.Println("  IMAGE_MCP_TRACING_EXPORTER=otlp         Span exporter: none, stdout, otlp")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
