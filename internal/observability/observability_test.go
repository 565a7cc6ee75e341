package observability

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"DEBUG":   "DEBUG",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"verbose": "INFO",
	}
	for in, want := range cases {
		require.Equal(t, want, parseLogLevel(in), "level %q", in)
	}
}

func TestNewServerLoggerProfiles(t *testing.T) {
	for _, profile := range []string{"", ProfileStructured, ProfileSimple, "Structured"} {
		logger, err := NewServerLogger("debug", profile)
		require.NoError(t, err, "profile %q", profile)
		logger.Info("logger ready", zap.String("profile", profile))
	}

	_, err := NewServerLogger("info", "fancy")
	require.Error(t, err)
}

func TestInitCLILogger(t *testing.T) {
	InitCLILogger(true)
	require.NotNil(t, CLILogger)
	CLILogger.Debug("cli logger ready")
}

func TestResolvePort(t *testing.T) {
	port, err := resolvePort("[::]:9191")
	require.NoError(t, err)
	require.Equal(t, 9191, port)

	_, err = resolvePort("nonsense")
	require.Error(t, err)
}
