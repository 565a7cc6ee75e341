// Package observability owns the process-wide loggers and telemetry system.
package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"

	"github.com/oasislearninghub/oasis/internal/appid"
)

// Logging profiles accepted by NewServerLogger.
const (
	ProfileSimple     = "simple"
	ProfileStructured = "structured"
)

var (
	// CLILogger is used by CLI commands (simple profile).
	CLILogger *logging.Logger

	// ServerLogger is used by the HTTP server and sessions.
	ServerLogger *logging.Logger
)

// InitCLILogger installs the CLI logger. verbose lowers the level to DEBUG.
func InitCLILogger(verbose bool) {
	logger, err := logging.NewCLI(appid.Get().BinaryName)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger installs the server logger or exits the process.
func InitServerLogger(level, profile string) {
	logger, err := NewServerLogger(level, profile)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

// NewServerLogger builds the server logger. The structured profile writes
// JSON to stderr with correlation ids, the simple profile writes console
// lines.
func NewServerLogger(level, profile string) (*logging.Logger, error) {
	identity := appid.Get()

	config := &logging.LoggerConfig{
		DefaultLevel: parseLogLevel(level),
		Service:      identity.BinaryName,
		Environment:  "production",
		StaticFields: map[string]any{
			"namespace": identity.TelemetryNamespace(),
		},
	}

	switch strings.ToLower(strings.TrimSpace(profile)) {
	case ProfileSimple:
		config.Profile = logging.ProfileSimple
		config.Sinks = []logging.SinkConfig{consoleSink("console")}
	case "", ProfileStructured:
		config.Profile = logging.ProfileStructured
		config.Sinks = []logging.SinkConfig{consoleSink("json")}
		config.Middleware = []logging.MiddlewareConfig{{
			Name:    "correlation",
			Enabled: true,
			Order:   100,
			Config:  make(map[string]any),
		}}
		config.EnableCaller = true
		config.EnableStacktrace = true
	default:
		return nil, fmt.Errorf("unknown logging profile %q (want simple or structured)", profile)
	}

	return logging.New(config)
}

func consoleSink(format string) logging.SinkConfig {
	return logging.SinkConfig{
		Type:   "console",
		Format: format,
		Console: &logging.ConsoleSinkConfig{
			Stream:   "stderr",
			Colorize: false,
		},
	}
}

// parseLogLevel maps config levels onto gofulmen severities.
func parseLogLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// exitWithCodeStderr exits with a semantic exit code before any logger exists.
func exitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)

	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		os.Exit(int(exitCode))
	}
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}
