package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/genaiops/mcp-genai-cost/internal/registry"
	"github.com/genaiops/mcp-genai-cost/internal/tools"

	// Import all tool packages to register them
	_ "github.com/genaiops/mcp-genai-cost/internal/imports"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Global resources that need cleanup
// Using atomic operations to prevent race conditions between signal handlers and cleanup
var (
	debugLogFile atomic.Pointer[os.File]
	isStdioMode  atomic.Bool
)

const (
	// DefaultMemoryLimit is the default memory limit for the Go application (2GB)
	DefaultMemoryLimit = 2 * 1024 * 1024 * 1024
)

// parseLogLevel parses the LOG_LEVEL environment variable and returns the appropriate logrus level.
// Defaults to WarnLevel if not set or invalid.
func parseLogLevel() logrus.Level {
	logLevelStr := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))

	switch logLevelStr {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.WarnLevel
	}
}

// setMemoryLimit configures the Go runtime memory limit
func setMemoryLimit() {
	memLimitStr := os.Getenv("MCP_GENAI_COST_MEMORY_LIMIT")
	var memLimit int64 = DefaultMemoryLimit

	if memLimitStr != "" {
		if parsed, err := strconv.ParseInt(memLimitStr, 10, 64); err == nil && parsed > 0 {
			memLimit = parsed
		}
	}

	// Soft limit - the runtime adjusts GC behaviour to stay under it
	debug.SetMemoryLimit(memLimit)
}

// configureLogging routes all log output to a file so stdio transport is
// never polluted, falling back to stderr (or discard for stdio) when the
// log file cannot be created.
func configureLogging(logger *logrus.Logger) {
	fallback := func() {
		if isStdioMode.Load() {
			logger.SetOutput(io.Discard)
			logrus.SetOutput(io.Discard)
		} else {
			logger.SetOutput(os.Stderr)
			logrus.SetOutput(os.Stderr)
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fallback()
		return
	}
	logDir := filepath.Join(homeDir, ".mcp-genai-cost", "logs")
	if err := os.MkdirAll(logDir, 0700); err != nil {
		fallback()
		return
	}
	logFile := filepath.Join(logDir, "mcp-genai-cost.log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		fallback()
		return
	}
	debugLogFile.Store(file)
	logger.SetOutput(file)
	logrus.SetOutput(file)
}

func main() {
	setMemoryLimit()

	// Optional .env for local development; silently ignored when absent
	_ = godotenv.Load()

	// Context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Discard output until the transport mode is known - stdio must never
	// see stray log lines
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(parseLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	registry.Init(logger)

	defer performCleanup(logger)

	app := &cli.Command{
		Name:    "mcp-genai-cost",
		Usage:   "MCP server for GenAI cost optimisation tooling",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Value:   "stdio",
				Usage:   "Transport type (stdio, sse, or http)",
			},
			&cli.StringFlag{
				Name:  "port",
				Value: "18080",
				Usage: "Port to use for HTTP transports (SSE and Streamable HTTP)",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Value: "http://localhost",
				Usage: "Base URL for HTTP transports",
			},
			&cli.StringFlag{
				Name:  "auth-token",
				Usage: "Authentication token for Streamable HTTP transport (optional)",
			},
			&cli.StringFlag{
				Name:  "endpoint-path",
				Value: "/http",
				Usage: "Endpoint path for Streamable HTTP transport",
			},
			&cli.DurationFlag{
				Name:  "session-timeout",
				Value: 30 * time.Minute,
				Usage: "Session timeout for Streamable HTTP transport",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("mcp-genai-cost version %s\n", Version)
					fmt.Printf("Commit: %s\n", Commit)
					fmt.Printf("Built: %s\n", BuildDate)
					return nil
				},
			},
		},
		Action: func(cliCtx context.Context, cmd *cli.Command) error {
			transport := cmd.String("transport")
			port := cmd.String("port")
			baseURL := cmd.String("base-url")

			isStdioMode.Store(transport == "stdio")

			configureLogging(logger)
			logLevel := parseLogLevel()
			if isStdioMode.Load() && logLevel < logrus.WarnLevel {
				logLevel = logrus.WarnLevel
			}
			logger.SetLevel(logLevel)
			logrus.SetLevel(logLevel)
			logger.WithField("level", logLevel.String()).Debug("Logging configured")

			if err := tools.InitGlobalErrorLogger(logger); err != nil {
				logger.WithError(err).Debug("Failed to initialise tool error logger")
				if transport != "stdio" {
					logger.WithError(err).Warn("Failed to initialise tool error logger")
				}
			}

			if transport != "stdio" {
				logger.Infof("Starting mcp-genai-cost version %s (commit: %s, built: %s)",
					Version, Commit, BuildDate)
			}

			logger.Debug("Creating MCP server")
			mcpSrv := mcpserver.NewMCPServer("mcp-genai-cost", "GenAI Cost Optimisation MCP Server")

			enabledTools := registry.GetEnabledTools()
			logger.WithField("tool_count", len(enabledTools)).Debug("MCP server created, registering tools")

			for toolName, toolImpl := range enabledTools {
				name := toolName
				tool := toolImpl

				if transport != "stdio" {
					logger.Infof("Registering tool: %s", name)
				}

				mcpSrv.AddTool(tool.Definition(), func(toolCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
					currentTool, ok := registry.GetTool(name)
					if !ok {
						return nil, fmt.Errorf("tool not found: %s", name)
					}

					args, ok := request.Params.Arguments.(map[string]any)
					if !ok {
						return nil, fmt.Errorf("invalid arguments type: expected map[string]interface{}, got %T", request.Params.Arguments)
					}

					result, err := currentTool.Execute(toolCtx, registry.GetLogger(), registry.GetCache(), args)
					if err != nil {
						if transport != "stdio" {
							logger.WithError(err).Errorf("Tool execution failed: %s", name)
						}
						if errorLogger := tools.GetGlobalErrorLogger(); errorLogger != nil && errorLogger.IsEnabled() {
							errorLogger.LogToolError(name, args, err, transport)
						}
						return nil, fmt.Errorf("tool execution failed: %w", err)
					}
					return result, nil
				})
			}

			logger.WithField("transport", transport).Debug("Starting server")
			switch transport {
			case "stdio":
				return mcpserver.ServeStdio(mcpSrv)
			case "sse":
				logger.WithField("port", port).Debug("Starting SSE server")
				sseServer := mcpserver.NewSSEServer(mcpSrv, mcpserver.WithBaseURL(baseURL+"/sse"))
				return sseServer.Start(":" + port)
			case "http":
				logger.WithField("port", port).Debug("Starting HTTP server")
				return startStreamableHTTPServer(cmd, mcpSrv, logger)
			default:
				return fmt.Errorf("unsupported transport: %s", transport)
			}
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		// In stdio mode nothing may be written to stdout or stderr - it
		// breaks the MCP protocol
		if !isStdioMode.Load() {
			logger.Fatalf("Error: %v", err)
		}
		os.Exit(1)
	}
}

// performCleanup handles cleanup of resources on shutdown
func performCleanup(logger *logrus.Logger) {
	// Close silently: stdio mode allows no output and in other modes the
	// logger may be writing to this very file
	if file := debugLogFile.Load(); file != nil {
		_ = file.Close()
	}

	if errorLogger := tools.GetGlobalErrorLogger(); errorLogger != nil {
		if err := errorLogger.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close tool error logger")
		}
	}
}

// startStreamableHTTPServer configures and starts the Streamable HTTP server
func startStreamableHTTPServer(cmd *cli.Command, mcpServer *mcpserver.MCPServer, logger *logrus.Logger) error {
	port := cmd.String("port")
	authToken := cmd.String("auth-token")
	endpointPath := cmd.String("endpoint-path")
	sessionTimeout := cmd.Duration("session-timeout")

	logger.Infof("Starting Streamable HTTP server on port %s with endpoint %s", port, endpointPath)

	opts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath(endpointPath),
	}

	if sessionTimeout > 0 {
		opts = append(opts, mcpserver.WithSessionIdManager(&TimeoutSessionManager{
			timeout: sessionTimeout,
			logger:  logger,
		}))
	}

	if authToken != "" {
		opts = append(opts, mcpserver.WithHTTPContextFunc(createAuthMiddleware(authToken, logger)))
		logger.Info("Token authentication enabled")
	}

	heartbeatInterval := 30 * time.Second
	if sessionTimeout > 0 {
		heartbeatInterval = sessionTimeout / 4
	}
	opts = append(opts, mcpserver.WithHeartbeatInterval(heartbeatInterval))
	opts = append(opts, mcpserver.WithLogger(&logrusAdapter{logger: logger}))

	httpServer := mcpserver.NewStreamableHTTPServer(mcpServer, opts...)

	logger.Infof("Heartbeat interval: %v", heartbeatInterval)
	return httpServer.Start(":" + port)
}

// createAuthMiddleware creates an HTTP context function for token authentication
func createAuthMiddleware(expectedToken string, logger *logrus.Logger) mcpserver.HTTPContextFunc {
	return func(ctx context.Context, req *http.Request) context.Context {
		protocolVersion := req.Header.Get("MCP-Protocol-Version")
		if protocolVersion != "" {
			if !isValidProtocolVersion(protocolVersion) {
				logger.Warnf("Unsupported MCP Protocol Version: %s", protocolVersion)
			} else {
				logger.Debugf("MCP Protocol Version: %s", protocolVersion)
			}
		} else {
			logger.Debug("No MCP-Protocol-Version header, assuming 2025-06-18")
		}

		// Origin validation guards against DNS rebinding
		origin := req.Header.Get("Origin")
		if origin != "" && !isValidOrigin(origin) {
			logger.Warnf("Invalid Origin header: %s", origin)
		}

		if expectedToken != "" {
			authHeader := req.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Request missing Authorization header")
				return ctx
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				logger.Warn("Invalid authorization format, expected Bearer token")
				return ctx
			}

			token := strings.TrimPrefix(authHeader, bearerPrefix)
			if token != expectedToken {
				logger.Warn("Invalid authentication token")
				return ctx
			}

			logger.Debug("Request authenticated successfully")
		}

		return ctx
	}
}

// isValidProtocolVersion checks if the MCP protocol version is supported
func isValidProtocolVersion(version string) bool {
	supportedVersions := []string{
		"2025-06-18", // Current version
		"2024-11-05", // Backwards compatibility
	}

	return slices.Contains(supportedVersions, version)
}

// isValidOrigin validates the Origin header to prevent DNS rebinding attacks
func isValidOrigin(origin string) bool {
	allowedOrigins := []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	}

	for _, allowed := range allowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

// TimeoutSessionManager implements SessionIdManager with timeout support
type TimeoutSessionManager struct {
	timeout time.Duration
	logger  *logrus.Logger
}

func (t *TimeoutSessionManager) Generate() string {
	return fmt.Sprintf("session-%d", time.Now().UnixNano())
}

func (t *TimeoutSessionManager) Validate(sessionID string) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("empty session ID")
	}
	return false, nil // Session is not terminated
}

func (t *TimeoutSessionManager) Terminate(sessionID string) (bool, error) {
	t.logger.Debugf("Session terminated: %s", sessionID)
	return true, nil
}

// logrusAdapter adapts logrus.Logger to the mcp-go util.Logger interface
type logrusAdapter struct {
	logger *logrus.Logger
}

func (l *logrusAdapter) Debugf(format string, args ...any) {
	l.logger.Debugf(format, args...)
}

func (l *logrusAdapter) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

func (l *logrusAdapter) Warnf(format string, args ...any) {
	l.logger.Warnf(format, args...)
}

func (l *logrusAdapter) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}
